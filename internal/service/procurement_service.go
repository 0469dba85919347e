// internal/service/procurement_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/cache"
	"github.com/andresuchdata/stockpredictor/internal/config"
	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/andresuchdata/stockpredictor/internal/procurement"
	"github.com/andresuchdata/stockpredictor/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Report list sizes, in the order a planner reads them.
const (
	reportOrderTodayLimit        = 20
	reportAlreadyOrderedLimit    = 10
	reportAttentionRequiredLimit = 15

	criticalMinPriority = 80
	criticalLimit       = 10
)

// ProcurementService runs the runway analysis for products and serves the
// planner-facing reports built from the persisted recommendations.
type ProcurementService struct {
	companies   repository.CompanyReader
	products    repository.ProductReader
	sales       repository.SalesReader
	inventory   repository.InventoryReader
	orders      repository.PurchaseOrderReader
	forecasts   repository.ForecastStore
	store       repository.RecommendationStore
	reportCache cache.ReportCache
	engine      config.EngineConfig
}

func NewProcurementService(
	companies repository.CompanyReader,
	products repository.ProductReader,
	sales repository.SalesReader,
	inventory repository.InventoryReader,
	orders repository.PurchaseOrderReader,
	forecasts repository.ForecastStore,
	store repository.RecommendationStore,
	reportCache cache.ReportCache,
	engine config.EngineConfig,
) *ProcurementService {
	return &ProcurementService{
		companies:   companies,
		products:    products,
		sales:       sales,
		inventory:   inventory,
		orders:      orders,
		forecasts:   forecasts,
		store:       store,
		reportCache: reportCache,
		engine:      engine,
	}
}

// AnalyzeProduct gathers the external reads for one product, runs the analyzer,
// and upserts the recommendation for the analysis date.
func (s *ProcurementService) AnalyzeProduct(ctx context.Context, productID int64, analysisDate time.Time) (*domain.Recommendation, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.products.ProcurementConfig(ctx, productID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.buildSnapshot(ctx, productID, analysisDate)
	if err != nil {
		return nil, err
	}

	rec := procurement.NewAnalyzer(cfg).Analyze(product, analysisDate, snapshot)
	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	// The stored recommendations changed; any cached report for this company
	// and date is stale now.
	if err := s.reportCache.InvalidateReport(ctx, product.CompanyID, analysisDate); err != nil {
		log.Warn().Err(err).Int64("company_id", product.CompanyID).Msg("report cache invalidation failed")
	}

	log.Debug().
		Int64("product_id", productID).
		Str("category", string(rec.ActionCategory)).
		Int("runway_days", rec.RunwayDays).
		Msg("product analyzed")

	return rec, nil
}

// buildSnapshot resolves the analyzer inputs. A product that has never been
// counted reads as zero stock; a product with no forecast carries a nil
// confidence so the priority score is not scaled down.
func (s *ProcurementService) buildSnapshot(ctx context.Context, productID int64, analysisDate time.Time) (procurement.Snapshot, error) {
	var in procurement.Snapshot

	inv, err := s.inventory.LatestSnapshot(ctx, productID, analysisDate)
	if err != nil {
		return in, err
	}
	if inv != nil {
		in.CurrentStock = inv.QuantityAvailable
	}

	windowStart := analysisDate.AddDate(0, 0, -s.engine.BurnRateWindowDays)
	in.WindowQuantity, in.WindowSalesDays, err = s.sales.BurnRateWindow(ctx, productID, windowStart, analysisDate)
	if err != nil {
		return in, err
	}

	in.InTransitQuantity, err = s.orders.InTransitQuantity(ctx, productID)
	if err != nil {
		return in, err
	}

	// The nearest future forecast carries the confidence used to temper priority.
	in.ForecastConfidence, err = s.forecasts.ConfidenceScore(ctx, productID, analysisDate.AddDate(0, 0, 1))
	if err != nil {
		return in, err
	}

	return in, nil
}

// CompanyReport assembles the planner report for a company and date, serving
// from the cache when a fresh copy exists.
func (s *ProcurementService) CompanyReport(ctx context.Context, companyID int64, analysisDate time.Time) (*domain.CompanyReport, error) {
	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.reportCache.GetReport(ctx, companyID, analysisDate); err != nil {
		log.Warn().Err(err).Int64("company_id", companyID).Msg("report cache read failed")
	} else if ok {
		return cached, nil
	}

	counts, err := s.store.CategoryCounts(ctx, companyID, analysisDate)
	if err != nil {
		return nil, err
	}

	orderToday, err := s.store.ByCategory(ctx, companyID, analysisDate, domain.ActionOrderToday, reportOrderTodayLimit)
	if err != nil {
		return nil, err
	}
	alreadyOrdered, err := s.store.ByCategory(ctx, companyID, analysisDate, domain.ActionAlreadyOrdered, reportAlreadyOrderedLimit)
	if err != nil {
		return nil, err
	}
	attention, err := s.store.ByCategory(ctx, companyID, analysisDate, domain.ActionAttentionRequired, reportAttentionRequiredLimit)
	if err != nil {
		return nil, err
	}

	report := &domain.CompanyReport{
		CompanyID:         companyID,
		CompanyName:       company.Name,
		AnalysisDate:      analysisDate,
		CategoryCounts:    counts,
		OrderToday:        orderToday,
		AlreadyOrdered:    alreadyOrdered,
		AttentionRequired: attention,
		GeneratedAt:       time.Now().UTC(),
	}

	if err := s.reportCache.SetReport(ctx, report); err != nil {
		log.Warn().Err(err).Int64("company_id", companyID).Msg("report cache write failed")
	}

	return report, nil
}

// CriticalItems lists the most urgent ORDER_TODAY recommendations for escalation.
func (s *ProcurementService) CriticalItems(ctx context.Context, companyID int64, analysisDate time.Time) ([]domain.Recommendation, error) {
	if _, err := s.companies.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}
	return s.store.Critical(ctx, companyID, analysisDate, decimal.NewFromInt(criticalMinPriority), criticalLimit)
}

// CleanupRecommendations deletes recommendations older than the retention
// window and drops every cached report, since reports are built from the rows
// that were just removed.
func (s *ProcurementService) CleanupRecommendations(ctx context.Context, asOf time.Time) (int64, error) {
	cutoff := asOf.AddDate(0, 0, -s.engine.RecommendationRetentionDays)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old recommendations: %w", err)
	}

	if err := s.reportCache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("report cache invalidation failed")
	}

	return deleted, nil
}
