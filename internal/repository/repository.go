// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/shopspring/decimal"
)

// CompanyReader resolves tenants.
type CompanyReader interface {
	GetCompany(ctx context.Context, id int64) (*domain.Company, error)
}

// ProductReader resolves products and their procurement settings.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ActiveProducts(ctx context.Context, companyID int64) ([]domain.Product, error)
	// ProcurementConfig returns nil (no error) when a product has no settings;
	// callers apply the documented defaults.
	ProcurementConfig(ctx context.Context, productID int64) (*domain.ProcurementConfig, error)
}

// SalesReader is the read path into the external daily sales aggregates.
type SalesReader interface {
	DailyAggregates(ctx context.Context, productID int64, from, to time.Time) ([]domain.DailySalesAggregate, error)
	// BurnRateWindow returns the total quantity sold and the number of days that
	// have an aggregate inside [from, to], as a single aggregate query.
	BurnRateWindow(ctx context.Context, productID int64, from, to time.Time) (totalQuantity, daysWithSales int, err error)
}

// InventoryReader resolves stock levels.
type InventoryReader interface {
	// LatestSnapshot returns the most recent snapshot at or before asOf, or nil
	// when the product has never been counted.
	LatestSnapshot(ctx context.Context, productID int64, asOf time.Time) (*domain.InventorySnapshot, error)
}

// PurchaseOrderReader resolves incoming stock from the purchasing system.
type PurchaseOrderReader interface {
	// InTransitQuantity sums (ordered - received) across line items whose parent
	// order is submitted, confirmed or in transit.
	InTransitQuantity(ctx context.Context, productID int64) (int, error)
}

// ForecastStore persists forecasts with upsert-by-natural-key semantics.
type ForecastStore interface {
	UpsertBatch(ctx context.Context, forecasts []domain.Forecast) error
	// ConfidenceScore returns the most recently generated confidence score for a
	// product on a date, or nil when no forecast exists.
	ConfidenceScore(ctx context.Context, productID int64, date time.Time) (*decimal.Decimal, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AccuracyStore records forecast-versus-actual evaluations.
type AccuracyStore interface {
	// EvaluateDate compares every forecast for forecastDate against the actual
	// aggregates and records one accuracy row per match, set-oriented.
	EvaluateDate(ctx context.Context, evaluationDate, forecastDate time.Time) (int64, error)
}

// RecommendationStore persists recommendations and serves the planner report.
type RecommendationStore interface {
	Upsert(ctx context.Context, rec *domain.Recommendation) error
	CategoryCounts(ctx context.Context, companyID int64, analysisDate time.Time) (map[domain.ActionCategory]int, error)
	// ByCategory lists recommendations for a company and date in the report
	// order for that category (priority descending, or runway ascending for
	// orders already in flight).
	ByCategory(ctx context.Context, companyID int64, analysisDate time.Time, category domain.ActionCategory, limit int) ([]domain.Recommendation, error)
	// Critical lists the highest-priority ORDER_TODAY items at or above the
	// given priority score.
	Critical(ctx context.Context, companyID int64, analysisDate time.Time, minPriority decimal.Decimal, limit int) ([]domain.Recommendation, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
