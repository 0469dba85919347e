// internal/domain/models.go
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Company represents a tenant. All products and sales data are scoped to one company.
type Company struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Product represents a sellable item. SKU is unique within a company.
type Product struct {
	ID        int64     `json:"id" db:"id"`
	CompanyID int64     `json:"company_id" db:"company_id"`
	SKU       string    `json:"sku" db:"sku"`
	Name      string    `json:"name" db:"name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProcurementConfig holds per-product procurement settings. When a product has no
// row, DefaultProcurementConfig applies and the recommendation metadata records it.
type ProcurementConfig struct {
	ProductID            int64 `json:"product_id" db:"product_id"`
	ReorderThresholdDays int   `json:"reorder_threshold_days" db:"reorder_threshold_days"`
	LeadTimeDays         int   `json:"lead_time_days" db:"lead_time_days"`
	SafetyStockDays      int   `json:"safety_stock_days" db:"safety_stock_days"`
	MinimumOrderQuantity int   `json:"minimum_order_quantity" db:"minimum_order_quantity"`
}

// DefaultProcurementConfig returns the documented fallback settings.
func DefaultProcurementConfig() ProcurementConfig {
	return ProcurementConfig{
		ReorderThresholdDays: 7,
		LeadTimeDays:         14,
		SafetyStockDays:      3,
		MinimumOrderQuantity: 1,
	}
}

// DailySalesAggregate is one day of sales for one product. Unique per product+date,
// written by the external sales aggregation job and read-only here.
type DailySalesAggregate struct {
	ID            int64     `json:"id" db:"id"`
	ProductID     int64     `json:"product_id" db:"product_id"`
	Date          time.Time `json:"date" db:"date"`
	TotalQuantity int       `json:"total_quantity" db:"total_quantity"`
}

// InventorySnapshot is the available stock level for a product on a date.
type InventorySnapshot struct {
	ID                int64     `json:"id" db:"id"`
	ProductID         int64     `json:"product_id" db:"product_id"`
	SnapshotDate      time.Time `json:"snapshot_date" db:"snapshot_date"`
	QuantityAvailable int       `json:"quantity_available" db:"quantity_available"`
}

// PurchaseOrder tracks an order placed with a supplier.
type PurchaseOrder struct {
	ID               int64      `json:"id" db:"id"`
	CompanyID        int64      `json:"company_id" db:"company_id"`
	PONumber         string     `json:"po_number" db:"po_number"`
	OrderDate        time.Time  `json:"order_date" db:"order_date"`
	ExpectedDelivery *time.Time `json:"expected_delivery" db:"expected_delivery"`
	Status           POStatus   `json:"status" db:"status"`
	SupplierName     string     `json:"supplier_name" db:"supplier_name"`
}

// PurchaseOrderItem is a line item on a purchase order. The in-transit quantity of
// a product is the sum of (ordered - received) across items on in-flight orders.
type PurchaseOrderItem struct {
	ID               int64 `json:"id" db:"id"`
	PurchaseOrderID  int64 `json:"purchase_order_id" db:"purchase_order_id"`
	ProductID        int64 `json:"product_id" db:"product_id"`
	QuantityOrdered  int   `json:"quantity_ordered" db:"quantity_ordered"`
	QuantityReceived int   `json:"quantity_received" db:"quantity_received"`
}

// Forecast is the predicted demand for a product on a future date. One row per
// product+forecast_date; regenerating overwrites the previous row.
type Forecast struct {
	ID                int64           `json:"id" db:"id"`
	ProductID         int64           `json:"product_id" db:"product_id"`
	ForecastDate      time.Time       `json:"forecast_date" db:"forecast_date"`
	PredictedQuantity int             `json:"predicted_quantity" db:"predicted_quantity"`
	ConfidenceLower   float64         `json:"confidence_lower" db:"confidence_lower"`
	ConfidenceUpper   float64         `json:"confidence_upper" db:"confidence_upper"`
	ConfidenceScore   decimal.Decimal `json:"confidence_score" db:"confidence_score"`
	ModelVersion      string          `json:"model_version" db:"model_version"`
	GeneratedAt       time.Time       `json:"generated_at" db:"generated_at"`
}

// ForecastAccuracy records how a past forecast compared against actual sales.
type ForecastAccuracy struct {
	ID              int64           `json:"id" db:"id"`
	ProductID       int64           `json:"product_id" db:"product_id"`
	EvaluationDate  time.Time       `json:"evaluation_date" db:"evaluation_date"`
	ForecastDate    time.Time       `json:"forecast_date" db:"forecast_date"`
	PredictedValue  int             `json:"predicted_value" db:"predicted_value"`
	ActualValue     int             `json:"actual_value" db:"actual_value"`
	AbsoluteError   int             `json:"absolute_error" db:"absolute_error"`
	PercentageError decimal.Decimal `json:"percentage_error" db:"percentage_error"`
	ModelVersion    string          `json:"model_version" db:"model_version"`
}

// Recommendation is the per-product, per-day procurement decision. One row per
// product+analysis_date; a re-run for the same date replaces the previous row.
type Recommendation struct {
	ID                  int64           `json:"id" db:"id"`
	ProductID           int64           `json:"product_id" db:"product_id"`
	SKU                 string          `json:"sku" db:"-"`
	ProductName         string          `json:"product_name" db:"-"`
	AnalysisDate        time.Time       `json:"analysis_date" db:"analysis_date"`
	CurrentStock        int             `json:"current_stock" db:"current_stock"`
	DailyBurnRate       decimal.Decimal `json:"daily_burn_rate" db:"daily_burn_rate"`
	RunwayDays          int             `json:"runway_days" db:"runway_days"`
	StockoutDate        *time.Time      `json:"stockout_date" db:"stockout_date"`
	RecommendedQuantity int             `json:"recommended_quantity" db:"recommended_quantity"`
	ActionCategory      ActionCategory  `json:"action_category" db:"action_category"`
	PriorityScore       decimal.Decimal `json:"priority_score" db:"priority_score"`
	Notes               string          `json:"notes" db:"notes"`
	Metadata            Metadata        `json:"metadata" db:"metadata"`
}

// Metadata is a JSONB column holding structured context for a recommendation.
type Metadata map[string]interface{}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("metadata: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, m)
}
