// internal/forecast/simple.go
package forecast

import (
	"math"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/domain"
)

// SimpleModelVersion identifies forecasts produced by the moving average model.
const SimpleModelVersion = "simple_ma_v1.0"

// MovingAverageForecaster is the always-available baseline: a volatility-weighted
// blend of 7-day and 14-day averages, constant across the horizon. It never fails,
// even on empty history.
type MovingAverageForecaster struct {
	window7  int
	window14 int
}

func NewMovingAverageForecaster() *MovingAverageForecaster {
	return &MovingAverageForecaster{window7: 7, window14: 14}
}

// Forecast produces exactly `horizon` daily rows starting the day after `from`.
func (f *MovingAverageForecaster) Forecast(history []SalesPoint, from time.Time, horizon int) (*Result, error) {
	qs := quantities(history)

	var weighted float64
	if len(qs) > 0 {
		avg7, avg14 := f.movingAverages(qs)
		weighted = f.weightedForecast(avg7, avg14, f.volatility(qs))
	}

	value := math.Round(weighted)
	if value < 0 {
		value = 0
	}

	stdDev := popStdDev(qs)
	lower := math.Max(0, value-1.96*stdDev)
	upper := value + 1.96*stdDev
	level := confidenceLevel(len(qs))
	score := confidenceScoreForLevel(level)

	result := &Result{
		ModelVersion: SimpleModelVersion,
		Level:        level,
		Points:       make([]Point, 0, horizon),
	}
	for i := 1; i <= horizon; i++ {
		result.Points = append(result.Points, Point{
			ForecastDate:      from.AddDate(0, 0, i),
			PredictedQuantity: int(value),
			ConfidenceLower:   lower,
			ConfidenceUpper:   upper,
			ConfidenceScore:   score,
		})
	}
	return result, nil
}

// movingAverages returns the 7-day and 14-day trailing means, falling back to the
// full series when fewer observations exist.
func (f *MovingAverageForecaster) movingAverages(qs []float64) (avg7, avg14 float64) {
	avg7 = mean(qs)
	if len(qs) >= f.window7 {
		avg7 = mean(qs[len(qs)-f.window7:])
	}
	avg14 = mean(qs)
	if len(qs) >= f.window14 {
		avg14 = mean(qs[len(qs)-f.window14:])
	}
	return avg7, avg14
}

// volatility is the coefficient of variation normalized to 0..1 (CV rarely
// exceeds 2 for daily sales).
func (f *MovingAverageForecaster) volatility(qs []float64) float64 {
	if len(qs) < 2 {
		return 0
	}
	m := mean(qs)
	if m == 0 {
		return 0
	}
	cv := popStdDev(qs) / m
	return math.Min(1, cv/2)
}

// weightedForecast blends the averages: the noisier the series, the more weight
// the longer window gets.
func (f *MovingAverageForecaster) weightedForecast(avg7, avg14, volatility float64) float64 {
	var w7, w14 float64
	switch {
	case volatility < 0.3:
		w7, w14 = 0.6, 0.4
	case volatility < 0.7:
		w7, w14 = 0.5, 0.5
	default:
		w7, w14 = 0.4, 0.6
	}
	return w7*avg7 + w14*avg14
}

func confidenceScoreForLevel(level domain.ConfidenceLevel) float64 {
	switch level {
	case domain.ConfidenceHigh:
		return 80
	case domain.ConfidenceMedium:
		return 60
	default:
		return 40
	}
}
