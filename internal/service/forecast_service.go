// internal/service/forecast_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/config"
	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/andresuchdata/stockpredictor/internal/forecast"
	"github.com/andresuchdata/stockpredictor/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// accuracyLagDays is how far back the accuracy job looks: forecasts made 7 days
// ago are compared against the sales that actually happened.
const accuracyLagDays = 7

// ForecastService generates and persists demand forecasts. The regression model
// is preferred; when a product's history cannot support it, the service falls
// back to the moving average baseline rather than failing the product.
type ForecastService struct {
	sales     repository.SalesReader
	forecasts repository.ForecastStore
	accuracy  repository.AccuracyStore
	engine    config.EngineConfig
}

func NewForecastService(
	sales repository.SalesReader,
	forecasts repository.ForecastStore,
	accuracy repository.AccuracyStore,
	engine config.EngineConfig,
) *ForecastService {
	return &ForecastService{
		sales:     sales,
		forecasts: forecasts,
		accuracy:  accuracy,
		engine:    engine,
	}
}

// GenerateProductForecast trains on the lookback window ending at asOf, writes
// one forecast row per horizon day, and returns the persisted result.
func (s *ForecastService) GenerateProductForecast(ctx context.Context, productID int64, asOf time.Time) (*forecast.Result, error) {
	from := asOf.AddDate(0, 0, -s.engine.ForecastLookbackDays)
	aggregates, err := s.sales.DailyAggregates(ctx, productID, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("loading sales history: %w", err)
	}

	history := buildHistory(aggregates, asOf)
	result := s.forecastWithFallback(history, asOf, productID)

	generatedAt := time.Now().UTC()
	rows := make([]domain.Forecast, 0, len(result.Points))
	for _, p := range result.Points {
		rows = append(rows, domain.Forecast{
			ProductID:         productID,
			ForecastDate:      p.ForecastDate,
			PredictedQuantity: p.PredictedQuantity,
			ConfidenceLower:   p.ConfidenceLower,
			ConfidenceUpper:   p.ConfidenceUpper,
			ConfidenceScore:   decimal.NewFromFloat(p.ConfidenceScore).Round(2),
			ModelVersion:      result.ModelVersion,
			GeneratedAt:       generatedAt,
		})
	}

	if err := s.forecasts.UpsertBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("persisting forecasts: %w", err)
	}

	log.Debug().
		Int64("product_id", productID).
		Str("model_version", result.ModelVersion).
		Int("horizon_days", len(result.Points)).
		Msg("forecast generated")

	return result, nil
}

// forecastWithFallback tries the regression model first. Sparse history or a
// training failure demotes the product to the moving average baseline.
func (s *ForecastService) forecastWithFallback(history []forecast.SalesPoint, asOf time.Time, productID int64) *forecast.Result {
	params := forecast.DefaultGBTParams()
	params.TimeBudget = time.Duration(s.engine.TrainingBudgetSeconds) * time.Second

	reg := forecast.NewRegressionForecaster(params)
	if len(history) >= s.engine.MinHistoryDaysForML {
		metrics, err := reg.Train(history)
		if err == nil {
			result, ferr := reg.Forecast(history, asOf, s.engine.ForecastHorizonDays)
			if ferr == nil {
				log.Debug().
					Int64("product_id", productID).
					Str("split", metrics.Strategy).
					Float64("cv_score", metrics.MeanCVScore).
					Int("usable_rows", metrics.UsableRows).
					Msg("regression model trained")
				return result
			}
			err = ferr
		}
		if !errors.Is(err, domain.ErrInsufficientData) {
			log.Warn().Err(err).Int64("product_id", productID).Msg("regression model failed, using moving average")
		}
	}

	// The baseline cannot fail, even on an empty series.
	result, _ := forecast.NewMovingAverageForecaster().Forecast(history, asOf, s.engine.ForecastHorizonDays)
	return result
}

// EvaluateAccuracy compares the forecasts made accuracyLagDays ago against the
// actual sales recorded for that date, and returns how many rows it evaluated.
func (s *ForecastService) EvaluateAccuracy(ctx context.Context, evaluationDate time.Time) (int64, error) {
	forecastDate := evaluationDate.AddDate(0, 0, -accuracyLagDays)
	evaluated, err := s.accuracy.EvaluateDate(ctx, evaluationDate, forecastDate)
	if err != nil {
		return 0, fmt.Errorf("evaluating forecast accuracy: %w", err)
	}

	log.Info().
		Time("forecast_date", forecastDate).
		Int64("evaluated", evaluated).
		Msg("forecast accuracy recorded")

	return evaluated, nil
}

// CleanupForecasts deletes forecasts older than the retention window.
func (s *ForecastService) CleanupForecasts(ctx context.Context, asOf time.Time) (int64, error) {
	cutoff := asOf.AddDate(0, 0, -s.engine.ForecastRetentionDays)
	deleted, err := s.forecasts.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old forecasts: %w", err)
	}
	return deleted, nil
}

// buildHistory converts aggregates into a dense daily series: zeros fill the
// days between the first observed sale and asOf, since a day without an
// aggregate is a day with no sales, not a day with unknown sales.
func buildHistory(aggregates []domain.DailySalesAggregate, asOf time.Time) []forecast.SalesPoint {
	if len(aggregates) == 0 {
		return nil
	}

	byDate := make(map[string]int, len(aggregates))
	for _, a := range aggregates {
		byDate[a.Date.Format("2006-01-02")] = a.TotalQuantity
	}

	start := dateOnly(aggregates[0].Date)
	end := dateOnly(asOf)

	var history []forecast.SalesPoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		history = append(history, forecast.SalesPoint{
			Date:     d,
			Quantity: float64(byDate[d.Format("2006-01-02")]),
		})
	}
	return history
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
