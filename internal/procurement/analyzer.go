// internal/procurement/analyzer.go
package procurement

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/shopspring/decimal"
)

// InfiniteRunwayDays stands in for "no stockout at the current burn rate".
const InfiniteRunwayDays = 999

// Snapshot carries the external reads for one product on one analysis date,
// already resolved by the caller. Aggregates (window totals, in-transit sums)
// arrive pre-computed so the analyzer itself stays a pure function.
type Snapshot struct {
	CurrentStock       int
	WindowQuantity     int // units sold inside the burn rate window
	WindowSalesDays    int // days inside the window that have an aggregate
	InTransitQuantity  int
	ForecastConfidence *decimal.Decimal // 0-100, nil when no forecast exists
}

// Analyzer converts a product snapshot into a procurement recommendation.
// Re-running it with identical inputs yields an identical recommendation.
type Analyzer struct {
	cfg             domain.ProcurementConfig
	defaultsApplied bool
}

// NewAnalyzer builds an analyzer for one product's settings. A nil config means
// the product has none; the documented defaults apply and are surfaced in the
// recommendation metadata.
func NewAnalyzer(cfg *domain.ProcurementConfig) *Analyzer {
	if cfg == nil {
		def := domain.DefaultProcurementConfig()
		return &Analyzer{cfg: def, defaultsApplied: true}
	}
	return &Analyzer{cfg: *cfg}
}

// Analyze runs the full decision sequence for one product and date.
func (a *Analyzer) Analyze(product *domain.Product, analysisDate time.Time, in Snapshot) *domain.Recommendation {
	burnRate := a.burnRate(in.WindowQuantity, in.WindowSalesDays)
	runway := a.runwayDays(in.CurrentStock, burnRate)
	stockout := analysisDate.AddDate(0, 0, runway)
	recommended := a.recommendedQuantity(burnRate, in.CurrentStock, in.InTransitQuantity)
	priority := a.priorityScore(runway, burnRate, in.ForecastConfidence)
	category := a.actionCategory(runway, in.InTransitQuantity, recommended, burnRate)

	metadata := domain.Metadata{
		"in_transit_quantity": in.InTransitQuantity,
		"reorder_threshold":   a.cfg.ReorderThresholdDays,
		"lead_time":           a.cfg.LeadTimeDays,
		"safety_stock_days":   a.cfg.SafetyStockDays,
	}
	if a.defaultsApplied {
		metadata["defaults_applied"] = true
	}

	return &domain.Recommendation{
		ProductID:           product.ID,
		SKU:                 product.SKU,
		ProductName:         product.Name,
		AnalysisDate:        analysisDate,
		CurrentStock:        in.CurrentStock,
		DailyBurnRate:       burnRate,
		RunwayDays:          runway,
		StockoutDate:        &stockout,
		RecommendedQuantity: recommended,
		ActionCategory:      category,
		PriorityScore:       priority,
		Notes:               a.notes(runway, in.CurrentStock, in.InTransitQuantity, recommended, category),
		Metadata:            metadata,
	}
}

// burnRate is average units sold per day with an aggregate inside the window.
// No sales days means a zero burn rate, not a division by zero.
func (a *Analyzer) burnRate(windowQuantity, windowSalesDays int) decimal.Decimal {
	if windowSalesDays == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(windowQuantity)).Div(decimal.NewFromInt(int64(windowSalesDays)))
}

// runwayDays is how many days the current stock lasts at the burn rate.
func (a *Analyzer) runwayDays(currentStock int, burnRate decimal.Decimal) int {
	if burnRate.LessThanOrEqual(decimal.Zero) {
		return InfiniteRunwayDays
	}
	runway := int(decimal.NewFromInt(int64(currentStock)).Div(burnRate).IntPart())
	if runway < 0 {
		return 0
	}
	return runway
}

// recommendedQuantity covers lead time plus safety stock, minus everything
// already on hand or on order, raised to the minimum order quantity when the
// shortfall is positive but small.
func (a *Analyzer) recommendedQuantity(burnRate decimal.Decimal, currentStock, inTransit int) int {
	if burnRate.LessThanOrEqual(decimal.Zero) {
		return 0
	}

	coverageDays := int64(a.cfg.LeadTimeDays + a.cfg.SafetyStockDays)
	required := int(burnRate.Mul(decimal.NewFromInt(coverageDays)).IntPart())
	available := currentStock + inTransit

	recommended := required - available
	if recommended > 0 && recommended < a.cfg.MinimumOrderQuantity {
		recommended = a.cfg.MinimumOrderQuantity
	}
	if recommended < 0 {
		return 0
	}
	return recommended
}

// priorityScore ranks urgency 0-100. The base score depends on the runway
// relative to the reorder threshold; velocity can raise it by at most 20%, and
// forecast confidence below 100 can only lower it.
func (a *Analyzer) priorityScore(runway int, burnRate decimal.Decimal, confidence *decimal.Decimal) decimal.Decimal {
	threshold := a.cfg.ReorderThresholdDays

	var base float64
	switch {
	case runway <= 0:
		base = 100
	case runway <= threshold:
		base = 70 + 30*float64(threshold-runway)/float64(threshold)
	default:
		base = math.Max(0, 70-float64(runway-threshold)*2)
	}

	burnFloat, _ := burnRate.Float64()
	velocity := math.Min(1.2, 1+burnFloat/100)

	priority := decimal.NewFromFloat(base).Mul(decimal.NewFromFloat(velocity))
	if confidence != nil {
		priority = priority.Mul(confidence.Div(decimal.NewFromInt(100)))
	}

	hundred := decimal.NewFromInt(100)
	if priority.GreaterThan(hundred) {
		priority = hundred
	}
	if priority.IsNegative() {
		priority = decimal.Zero
	}
	return priority.Round(2)
}

// actionCategory classifies the product for the planner, in strict precedence.
// An order already in transit is measured against lead-time demand only; the
// safety buffer is deliberately excluded from that comparison.
func (a *Analyzer) actionCategory(runway, inTransit, recommended int, burnRate decimal.Decimal) domain.ActionCategory {
	if inTransit > 0 {
		leadTimeDemand := int(burnRate.Mul(decimal.NewFromInt(int64(a.cfg.LeadTimeDays))).IntPart())
		if inTransit >= leadTimeDemand {
			return domain.ActionAlreadyOrdered
		}
		return domain.ActionAttentionRequired
	}

	if runway <= a.cfg.ReorderThresholdDays && recommended > 0 {
		return domain.ActionOrderToday
	}

	if recommended > 0 && float64(runway) <= float64(a.cfg.ReorderThresholdDays)*1.5 {
		return domain.ActionAttentionRequired
	}

	return domain.ActionNormal
}

// notes renders the audit-readable summary for the recommendation.
func (a *Analyzer) notes(runway, currentStock, inTransit, recommended int, category domain.ActionCategory) string {
	var parts []string

	switch category {
	case domain.ActionOrderToday:
		parts = append(parts,
			fmt.Sprintf("Critical: Only %d days of inventory remaining.", runway),
			fmt.Sprintf("Recommended order: %d units.", recommended))
	case domain.ActionAlreadyOrdered:
		parts = append(parts,
			fmt.Sprintf("Purchase order in transit: %d units.", inTransit),
			fmt.Sprintf("Current runway: %d days.", runway))
	case domain.ActionAttentionRequired:
		parts = append(parts, fmt.Sprintf("Attention needed: %d days runway.", runway))
		if inTransit > 0 {
			parts = append(parts,
				fmt.Sprintf("Partial coverage from PO: %d units.", inTransit),
				fmt.Sprintf("Additional %d units may be needed.", recommended))
		}
	default:
		parts = append(parts, fmt.Sprintf("Inventory healthy: %d days runway.", runway))
	}

	if currentStock == 0 {
		parts = append(parts, "Currently out of stock!")
	}

	return strings.Join(parts, " ")
}
