// internal/forecast/features.go
package forecast

import (
	"fmt"
	"math"
)

// featureKind drives the backfill policy for null feature values.
type featureKind int

const (
	kindLag featureKind = iota
	kindRollingMean
	kindRollingStd
	kindCalendar
	kindTrend
	kindGrowth
)

type featureColumn struct {
	name   string
	kind   featureKind
	values []float64 // NaN marks a null
}

// FeatureMatrix is the engineered training input: one row per retained date,
// aligned with the raw quantity as the regression target.
type FeatureMatrix struct {
	Dates   []int // indexes into the source series
	Columns []string
	Rows    [][]float64
	Target  []float64
}

// FeatureEngineer turns a daily sales series into lag, rolling, calendar and
// trend features. Rows with too many nulls are dropped; the rest are backfilled
// so young product histories still yield usable training data.
type FeatureEngineer struct {
	LagDays        []int
	RollingWindows []int
}

func NewFeatureEngineer() *FeatureEngineer {
	return &FeatureEngineer{
		LagDays:        []int{1, 7, 14, 30},
		RollingWindows: []int{7, 14, 30},
	}
}

// Engineer builds the feature matrix for a series sorted ascending by date.
// Duplicate dates are rejected; the series must be in order.
func (fe *FeatureEngineer) Engineer(series []SalesPoint) (*FeatureMatrix, error) {
	for i := 1; i < len(series); i++ {
		if !series[i].Date.After(series[i-1].Date) {
			if series[i].Date.Equal(series[i-1].Date) {
				return nil, fmt.Errorf("duplicate date %s in sales series", series[i].Date.Format("2006-01-02"))
			}
			return nil, fmt.Errorf("sales series not sorted ascending at index %d", i)
		}
	}

	n := len(series)
	qs := quantities(series)

	var cols []featureColumn
	for _, lag := range fe.LagDays {
		cols = append(cols, featureColumn{
			name:   fmt.Sprintf("quantity_lag_%d", lag),
			kind:   kindLag,
			values: lagValues(qs, lag),
		})
	}
	for _, window := range fe.RollingWindows {
		means, stds := rollingStats(qs, window)
		cols = append(cols,
			featureColumn{name: fmt.Sprintf("quantity_rolling_mean_%d", window), kind: kindRollingMean, values: means},
			featureColumn{name: fmt.Sprintf("quantity_rolling_std_%d", window), kind: kindRollingStd, values: stds},
		)
	}

	dow := make([]float64, n)
	weekend := make([]float64, n)
	daysSinceStart := make([]float64, n)
	for i, p := range series {
		// Monday = 0 .. Sunday = 6
		d := (int(p.Date.Weekday()) + 6) % 7
		dow[i] = float64(d)
		if d >= 5 {
			weekend[i] = 1
		}
		if n > 0 {
			daysSinceStart[i] = p.Date.Sub(series[0].Date).Hours() / 24
		}
	}
	cols = append(cols,
		featureColumn{name: "day_of_week", kind: kindCalendar, values: dow},
		featureColumn{name: "is_weekend", kind: kindCalendar, values: weekend},
		featureColumn{name: "days_since_start", kind: kindTrend, values: daysSinceStart},
		featureColumn{name: "growth_rate_7d", kind: kindGrowth, values: growthRate(qs, 7)},
		featureColumn{name: "growth_rate_30d", kind: kindGrowth, values: growthRate(qs, 30)},
	)

	matrix := &FeatureMatrix{Columns: make([]string, len(cols))}
	for i, c := range cols {
		matrix.Columns[i] = c.name
	}

	for i := 0; i < n; i++ {
		nulls := 0
		for _, c := range cols {
			if math.IsNaN(c.values[i]) {
				nulls++
			}
		}
		// A row survives only while fewer than half of its features are null.
		if nulls*2 >= len(cols) {
			continue
		}

		row := make([]float64, len(cols))
		for j, c := range cols {
			v := c.values[i]
			if math.IsNaN(v) {
				v = backfill(c.kind, qs[i])
			}
			row[j] = v
		}
		matrix.Dates = append(matrix.Dates, i)
		matrix.Rows = append(matrix.Rows, row)
		matrix.Target = append(matrix.Target, qs[i])
	}

	return matrix, nil
}

// backfill supplies the documented replacement for a null feature: lag and
// rolling-mean nulls take the row's own quantity, everything else takes 0.
func backfill(kind featureKind, quantity float64) float64 {
	switch kind {
	case kindLag, kindRollingMean:
		return quantity
	default:
		return 0
	}
}

func lagValues(qs []float64, lag int) []float64 {
	out := make([]float64, len(qs))
	for i := range qs {
		if i < lag {
			out[i] = math.NaN()
			continue
		}
		out[i] = qs[i-lag]
	}
	return out
}

// rollingStats computes trailing-window mean and sample standard deviation.
// Positions without a full window are null.
func rollingStats(qs []float64, window int) (means, stds []float64) {
	means = make([]float64, len(qs))
	stds = make([]float64, len(qs))
	for i := range qs {
		if i+1 < window {
			means[i] = math.NaN()
			stds[i] = math.NaN()
			continue
		}
		slice := qs[i+1-window : i+1]
		means[i] = mean(slice)
		stds[i] = sampleStdDev(slice)
	}
	return means, stds
}

// growthRate is the fractional change versus `periods` days prior. Null when the
// prior value is unavailable or zero.
func growthRate(qs []float64, periods int) []float64 {
	out := make([]float64, len(qs))
	for i := range qs {
		if i < periods || qs[i-periods] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (qs[i] - qs[i-periods]) / qs[i-periods]
	}
	return out
}
