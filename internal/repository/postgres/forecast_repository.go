// internal/repository/postgres/forecast_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/andresuchdata/stockpredictor/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type forecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) repository.ForecastStore {
	return &forecastRepository{db: db}
}

// UpsertBatch writes a horizon of forecasts inside one transaction, so a
// partially written horizon is never visible. A later forecast for the same
// product+date replaces the earlier one.
func (r *forecastRepository) UpsertBatch(ctx context.Context, forecasts []domain.Forecast) error {
	if len(forecasts) == 0 {
		return nil
	}

	query := `
		INSERT INTO forecasts (
			product_id, forecast_date, predicted_quantity,
			confidence_lower, confidence_upper, confidence_score,
			model_version, generated_at
		) VALUES (
			:product_id, :forecast_date, :predicted_quantity,
			:confidence_lower, :confidence_upper, :confidence_score,
			:model_version, :generated_at
		)
		ON CONFLICT (product_id, forecast_date) DO UPDATE SET
			predicted_quantity = EXCLUDED.predicted_quantity,
			confidence_lower = EXCLUDED.confidence_lower,
			confidence_upper = EXCLUDED.confidence_upper,
			confidence_score = EXCLUDED.confidence_score,
			model_version = EXCLUDED.model_version,
			generated_at = EXCLUDED.generated_at
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, forecasts); err != nil {
			return fmt.Errorf("error upserting forecasts: %w", err)
		}
		return nil
	})
}

func (r *forecastRepository) ConfidenceScore(ctx context.Context, productID int64, date time.Time) (*decimal.Decimal, error) {
	query := `
		SELECT confidence_score
		FROM forecasts
		WHERE product_id = $1 AND forecast_date = $2
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var score decimal.Decimal
	if err := r.db.GetContext(ctx, &score, query, productID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting forecast confidence: %w", err)
	}

	return &score, nil
}

func (r *forecastRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM forecasts WHERE forecast_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old forecasts: %w", err)
	}
	return result.RowsAffected()
}

type accuracyRepository struct {
	db *sqlx.DB
}

func NewAccuracyRepository(db *sqlx.DB) repository.AccuracyStore {
	return &accuracyRepository{db: db}
}

// EvaluateDate joins forecasts against actual aggregates and records accuracy
// rows in one statement, avoiding a per-forecast round trip.
func (r *accuracyRepository) EvaluateDate(ctx context.Context, evaluationDate, forecastDate time.Time) (int64, error) {
	query := `
		INSERT INTO forecast_accuracy (
			product_id, evaluation_date, forecast_date,
			predicted_value, actual_value, absolute_error, percentage_error,
			model_version
		)
		SELECT
			f.product_id, $1, f.forecast_date,
			f.predicted_quantity, a.total_quantity,
			ABS(a.total_quantity - f.predicted_quantity),
			ABS(a.total_quantity - f.predicted_quantity)::numeric
				/ (a.total_quantity + 1) * 100,
			f.model_version
		FROM forecasts f
		JOIN daily_sales_aggregates a
			ON a.product_id = f.product_id AND a.date = f.forecast_date
		WHERE f.forecast_date = $2
	`

	result, err := r.db.ExecContext(ctx, query, evaluationDate, forecastDate)
	if err != nil {
		return 0, fmt.Errorf("error evaluating forecast accuracy: %w", err)
	}
	return result.RowsAffected()
}
