// internal/forecast/regression.go
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/domain"
)

// RegressionModelVersion identifies forecasts produced by the boosted tree model.
const RegressionModelVersion = "v1.0"

// MinTrainingRows is the smallest feature matrix the regression model accepts.
const MinTrainingRows = 10

// TrainingMetrics summarizes how the model was validated during fitting.
type TrainingMetrics struct {
	Strategy    string
	Folds       int
	MeanCVScore float64
	StdCVScore  float64
	UsableRows  int
}

// fold is one chronological train/validation split: rows [0:trainEnd) train,
// rows [trainEnd:valEnd) validate.
type fold struct {
	trainEnd int
	valEnd   int
}

// splitStrategy yields validation folds for n chronologically ordered rows, or
// nil when it cannot be applied. Strategies are tried in order; the first
// applicable one wins.
type splitStrategy interface {
	Name() string
	Folds(n int) []fold
}

// rollingOriginSplit grows the training window fold by fold, validating on the
// next contiguous chunk each time. Needs at least two usable folds.
type rollingOriginSplit struct {
	folds int
}

func (s rollingOriginSplit) Name() string { return "rolling_origin_cv" }

func (s rollingOriginSplit) Folds(n int) []fold {
	testSize := n / (s.folds + 1)
	if testSize < 1 {
		return nil
	}
	firstTrain := n - s.folds*testSize
	if firstTrain < 1 {
		return nil
	}
	out := make([]fold, 0, s.folds)
	for i := 0; i < s.folds; i++ {
		trainEnd := firstTrain + i*testSize
		out = append(out, fold{trainEnd: trainEnd, valEnd: trainEnd + testSize})
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

// holdoutSplit is the single chronological 80/20 fallback.
type holdoutSplit struct {
	ratio float64
}

func (s holdoutSplit) Name() string { return "holdout" }

func (s holdoutSplit) Folds(n int) []fold {
	trainEnd := int(float64(n) * s.ratio)
	if trainEnd < 1 || trainEnd >= n {
		return nil
	}
	return []fold{{trainEnd: trainEnd, valEnd: n}}
}

// RegressionForecaster trains a gradient-boosted tree model on engineered
// features and predicts the horizon one day at a time, feeding each prediction
// back into the feature pipeline.
type RegressionForecaster struct {
	engineer   *FeatureEngineer
	params     GBTParams
	strategies []splitStrategy
	model      *GBTRegressor
}

func NewRegressionForecaster(params GBTParams) *RegressionForecaster {
	return &RegressionForecaster{
		engineer: NewFeatureEngineer(),
		params:   params,
		strategies: []splitStrategy{
			rollingOriginSplit{folds: 3},
			holdoutSplit{ratio: 0.8},
		},
	}
}

// Train fits the model with time-ordered validation. It returns
// domain.ErrInsufficientData when the engineered matrix is too small; the caller
// is expected to fall back to the moving average model.
func (f *RegressionForecaster) Train(history []SalesPoint) (*TrainingMetrics, error) {
	fm, err := f.engineer.Engineer(history)
	if err != nil {
		return nil, fmt.Errorf("feature engineering: %w", err)
	}
	if len(fm.Rows) < MinTrainingRows || len(fm.Columns) == 0 {
		return nil, fmt.Errorf("%w: %d usable rows, %d features",
			domain.ErrInsufficientData, len(fm.Rows), len(fm.Columns))
	}

	var folds []fold
	var strategy string
	for _, s := range f.strategies {
		if fs := s.Folds(len(fm.Rows)); fs != nil {
			folds = fs
			strategy = s.Name()
			break
		}
	}
	if folds == nil {
		return nil, fmt.Errorf("%w: no applicable validation split for %d rows",
			domain.ErrInsufficientData, len(fm.Rows))
	}

	scores := make([]float64, 0, len(folds))
	for _, fd := range folds {
		m := NewGBTRegressor(f.params)
		if err := m.Fit(fm.Rows[:fd.trainEnd], fm.Target[:fd.trainEnd]); err != nil {
			return nil, fmt.Errorf("fold fit: %w", err)
		}
		scores = append(scores, m.Score(fm.Rows[fd.trainEnd:fd.valEnd], fm.Target[fd.trainEnd:fd.valEnd]))
	}

	// Deploy a model refit on the full dataset.
	f.model = NewGBTRegressor(f.params)
	if err := f.model.Fit(fm.Rows, fm.Target); err != nil {
		return nil, fmt.Errorf("final fit: %w", err)
	}

	return &TrainingMetrics{
		Strategy:    strategy,
		Folds:       len(folds),
		MeanCVScore: mean(scores),
		StdCVScore:  popStdDev(scores),
		UsableRows:  len(fm.Rows),
	}, nil
}

// Forecast predicts `horizon` days following `from`. Each step appends its
// prediction to the working series and re-engineers features, so predictions
// compound. A step that fails numerically substitutes the historical mean
// instead of aborting the horizon.
func (f *RegressionForecaster) Forecast(history []SalesPoint, from time.Time, horizon int) (*Result, error) {
	if f.model == nil {
		return nil, errors.New("regression forecaster: model not trained")
	}

	work := make([]SalesPoint, len(history))
	copy(work, history)

	result := &Result{
		ModelVersion: RegressionModelVersion,
		Level:        confidenceLevel(len(history)),
		Points:       make([]Point, 0, horizon),
	}

	for day := 1; day <= horizon; day++ {
		forecastDate := from.AddDate(0, 0, day)

		pred, ok := f.predictStep(work)
		if !ok {
			pred = mean(quantities(work))
		}

		quantity := int(pred)
		if quantity < 0 {
			quantity = 0
		}

		stdDev := sampleStdDev(quantities(work))
		lower := math.Max(0, float64(quantity)-1.96*stdDev)
		upper := float64(quantity) + 1.96*stdDev

		result.Points = append(result.Points, Point{
			ForecastDate:      forecastDate,
			PredictedQuantity: quantity,
			ConfidenceLower:   lower,
			ConfidenceUpper:   upper,
			ConfidenceScore:   confidenceScore(stdDev, quantity),
		})

		work = append(work, SalesPoint{Date: forecastDate, Quantity: float64(quantity)})
	}

	return result, nil
}

// predictStep runs one autoregressive step. ok is false when the step cannot
// produce a finite prediction.
func (f *RegressionForecaster) predictStep(work []SalesPoint) (float64, bool) {
	fm, err := f.engineer.Engineer(work)
	if err != nil || len(fm.Rows) == 0 {
		return 0, false
	}
	pred := f.model.Predict(fm.Rows[len(fm.Rows)-1])
	if math.IsNaN(pred) || math.IsInf(pred, 0) {
		return 0, false
	}
	return pred, true
}

// confidenceScore penalizes high volatility relative to the prediction, capped
// at 95 and floored at 0.
func confidenceScore(stdDev float64, prediction int) float64 {
	score := math.Min(95, 100-math.Abs(stdDev/float64(prediction+1)*100))
	if score < 0 {
		return 0
	}
	return score
}
