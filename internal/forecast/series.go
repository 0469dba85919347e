// internal/forecast/series.go
package forecast

import (
	"math"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/domain"
)

// SalesPoint is one day of observed (or, during iterative prediction, predicted)
// demand for a product.
type SalesPoint struct {
	Date     time.Time
	Quantity float64
}

// Point is a single day of forecast output. Both forecasters emit the same shape
// so callers can treat them interchangeably.
type Point struct {
	ForecastDate      time.Time
	PredictedQuantity int
	ConfidenceLower   float64
	ConfidenceUpper   float64
	ConfidenceScore   float64
}

// Result is a full horizon of daily forecasts from one model.
type Result struct {
	Points       []Point
	ModelVersion string
	Level        domain.ConfidenceLevel
}

// Forecaster produces a daily demand forecast for the `horizon` days following
// `from`, given trailing history sorted ascending by date.
type Forecaster interface {
	Forecast(history []SalesPoint, from time.Time, horizon int) (*Result, error)
}

func quantities(history []SalesPoint) []float64 {
	qs := make([]float64, len(history))
	for i, p := range history {
		qs[i] = p.Quantity
	}
	return qs
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// popStdDev is the population standard deviation (ddof=0).
func popStdDev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	m := mean(vs)
	var ss float64
	for _, v := range vs {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vs)))
}

// sampleStdDev is the sample standard deviation (ddof=1).
func sampleStdDev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	m := mean(vs)
	var ss float64
	for _, v := range vs {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vs)-1))
}

// confidenceLevel maps the number of observed data points to a coarse label.
func confidenceLevel(dataPoints int) domain.ConfidenceLevel {
	switch {
	case dataPoints >= 30:
		return domain.ConfidenceHigh
	case dataPoints >= 14:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
