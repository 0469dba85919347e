// internal/repository/postgres/recommendation_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/andresuchdata/stockpredictor/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type recommendationRepository struct {
	db *DB
}

func NewRecommendationRepository(db *DB) repository.RecommendationStore {
	return &recommendationRepository{db: db}
}

// Upsert replaces the recommendation for the product+analysis_date natural key,
// so a retried run converges to the same stored row.
func (r *recommendationRepository) Upsert(ctx context.Context, rec *domain.Recommendation) error {
	query := `
		INSERT INTO procurement_recommendations (
			product_id, analysis_date, current_stock, daily_burn_rate,
			runway_days, stockout_date, recommended_quantity,
			action_category, priority_score, notes, metadata
		) VALUES (
			:product_id, :analysis_date, :current_stock, :daily_burn_rate,
			:runway_days, :stockout_date, :recommended_quantity,
			:action_category, :priority_score, :notes, :metadata
		)
		ON CONFLICT (product_id, analysis_date) DO UPDATE SET
			current_stock = EXCLUDED.current_stock,
			daily_burn_rate = EXCLUDED.daily_burn_rate,
			runway_days = EXCLUDED.runway_days,
			stockout_date = EXCLUDED.stockout_date,
			recommended_quantity = EXCLUDED.recommended_quantity,
			action_category = EXCLUDED.action_category,
			priority_score = EXCLUDED.priority_score,
			notes = EXCLUDED.notes,
			metadata = EXCLUDED.metadata
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
			return fmt.Errorf("error upserting recommendation: %w", err)
		}
		return nil
	})
}

func (r *recommendationRepository) CategoryCounts(ctx context.Context, companyID int64, analysisDate time.Time) (map[domain.ActionCategory]int, error) {
	query := `
		SELECT pr.action_category, COUNT(*) AS count
		FROM procurement_recommendations pr
		JOIN products p ON p.id = pr.product_id
		WHERE p.company_id = $1 AND pr.analysis_date = $2
		GROUP BY pr.action_category
	`

	rows, err := r.db.QueryxContext(ctx, query, companyID, analysisDate)
	if err != nil {
		return nil, fmt.Errorf("error counting recommendations: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ActionCategory]int)
	for rows.Next() {
		var category domain.ActionCategory
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("error scanning category count: %w", err)
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}

	return counts, nil
}

func (r *recommendationRepository) ByCategory(ctx context.Context, companyID int64, analysisDate time.Time, category domain.ActionCategory, limit int) ([]domain.Recommendation, error) {
	// Orders already in flight read best soonest-stockout first; everything
	// else reads most-urgent first.
	orderBy := "pr.priority_score DESC"
	if category == domain.ActionAlreadyOrdered {
		orderBy = "pr.runway_days ASC"
	}

	query := fmt.Sprintf(`
		SELECT pr.id, pr.product_id, pr.analysis_date, pr.current_stock,
		       pr.daily_burn_rate, pr.runway_days, pr.stockout_date,
		       pr.recommended_quantity, pr.action_category, pr.priority_score,
		       pr.notes, pr.metadata,
		       p.sku AS sku, p.name AS product_name
		FROM procurement_recommendations pr
		JOIN products p ON p.id = pr.product_id
		WHERE p.company_id = $1 AND pr.analysis_date = $2 AND pr.action_category = $3
		ORDER BY %s
		LIMIT $4
	`, orderBy)

	return r.selectRecommendations(ctx, query, companyID, analysisDate, category, limit)
}

func (r *recommendationRepository) Critical(ctx context.Context, companyID int64, analysisDate time.Time, minPriority decimal.Decimal, limit int) ([]domain.Recommendation, error) {
	query := `
		SELECT pr.id, pr.product_id, pr.analysis_date, pr.current_stock,
		       pr.daily_burn_rate, pr.runway_days, pr.stockout_date,
		       pr.recommended_quantity, pr.action_category, pr.priority_score,
		       pr.notes, pr.metadata,
		       p.sku AS sku, p.name AS product_name
		FROM procurement_recommendations pr
		JOIN products p ON p.id = pr.product_id
		WHERE p.company_id = $1 AND pr.analysis_date = $2
		  AND pr.action_category = $3 AND pr.priority_score >= $4
		ORDER BY pr.priority_score DESC
		LIMIT $5
	`

	return r.selectRecommendations(ctx, query, companyID, analysisDate, domain.ActionOrderToday, minPriority, limit)
}

func (r *recommendationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM procurement_recommendations WHERE analysis_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old recommendations: %w", err)
	}
	return result.RowsAffected()
}

func (r *recommendationRepository) selectRecommendations(ctx context.Context, query string, args ...interface{}) ([]domain.Recommendation, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying recommendations: %w", err)
	}
	defer rows.Close()

	var recs []domain.Recommendation
	for rows.Next() {
		var rec domain.Recommendation
		if err := rows.Scan(
			&rec.ID, &rec.ProductID, &rec.AnalysisDate, &rec.CurrentStock,
			&rec.DailyBurnRate, &rec.RunwayDays, &rec.StockoutDate,
			&rec.RecommendedQuantity, &rec.ActionCategory, &rec.PriorityScore,
			&rec.Notes, &rec.Metadata,
			&rec.SKU, &rec.ProductName,
		); err != nil {
			return nil, fmt.Errorf("error scanning recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}

	return recs, nil
}
