package analysis

import (
	"datalens/internal/dataset"
)

// DecompositionResult holds the additive decomposition components. Trend and
// residual points the moving average cannot estimate at the series edges
// serialize as null.
type DecompositionResult struct {
	Timestamps []string        `json:"timestamps"`
	Observed   []float64       `json:"observed"`
	Trend      []dataset.Value `json:"trend"`
	Seasonal   []float64       `json:"seasonal"`
	Residual   []dataset.Value `json:"residual"`
	Period     int             `json:"period"`
	Column     string          `json:"column"`
}

// SeasonalDecompose performs additive decomposition of the cleaned, sorted
// series: observed = trend + seasonal + residual. The trend is a centered
// moving average of length period (with half-weight endpoints when period is
// even), the seasonal component is the de-meaned per-phase average of the
// detrended series, and the residual is what remains.
func (e *Engine) SeasonalDecompose(timeColumn, valueColumn string, period int) (*DecompositionResult, error) {
	if period < 2 {
		period = 30
	}
	points, err := e.cleanSeries(timeColumn, valueColumn)
	if err != nil {
		return nil, err
	}
	n := len(points)
	if n < 2*period {
		return nil, Errorf(KindInsufficientDataForPeriod,
			"insufficient data for decomposition: need at least %d data points, have %d", 2*period, n)
	}

	observed := make([]float64, n)
	timestamps := make([]string, n)
	for i, p := range points {
		observed[i] = p.val
		timestamps[i] = p.ts.Format(dataset.TimestampLayout)
	}

	trend, valid := centeredMovingAverage(observed, period)
	seasonal := seasonalComponent(observed, trend, valid, period)

	trendOut := make([]dataset.Value, n)
	residualOut := make([]dataset.Value, n)
	for i := 0; i < n; i++ {
		if valid[i] {
			trendOut[i] = dataset.Number(trend[i])
			residualOut[i] = dataset.Number(observed[i] - trend[i] - seasonal[i])
		} else {
			trendOut[i] = dataset.Null()
			residualOut[i] = dataset.Null()
		}
	}

	return &DecompositionResult{
		Timestamps: timestamps,
		Observed:   observed,
		Trend:      trendOut,
		Seasonal:   seasonal,
		Residual:   residualOut,
		Period:     period,
		Column:     valueColumn,
	}, nil
}

// centeredMovingAverage computes the decomposition trend. For an odd period
// it is a plain centered mean; for an even period the window spans period+1
// points with half weight on the endpoints. valid marks the indices where
// the full window fits.
func centeredMovingAverage(x []float64, period int) (trend []float64, valid []bool) {
	n := len(x)
	trend = make([]float64, n)
	valid = make([]bool, n)
	half := period / 2

	for i := half; i < n-half; i++ {
		var sum float64
		if period%2 == 1 {
			for j := i - half; j <= i+half; j++ {
				sum += x[j]
			}
		} else {
			sum = 0.5*x[i-half] + 0.5*x[i+half]
			for j := i - half + 1; j <= i+half-1; j++ {
				sum += x[j]
			}
		}
		trend[i] = sum / float64(period)
		valid[i] = true
	}
	return trend, valid
}

// seasonalComponent averages the detrended series per phase (index modulo
// period), de-means the phase averages and tiles them across the series.
func seasonalComponent(observed, trend []float64, valid []bool, period int) []float64 {
	sums := make([]float64, period)
	counts := make([]int, period)
	for i := range observed {
		if !valid[i] {
			continue
		}
		phase := i % period
		sums[phase] += observed[i] - trend[i]
		counts[phase]++
	}

	averages := make([]float64, period)
	total := 0.0
	for p := 0; p < period; p++ {
		if counts[p] > 0 {
			averages[p] = sums[p] / float64(counts[p])
		}
		total += averages[p]
	}
	mean := total / float64(period)
	for p := 0; p < period; p++ {
		averages[p] -= mean
	}

	seasonal := make([]float64, len(observed))
	for i := range observed {
		seasonal[i] = averages[i%period]
	}
	return seasonal
}
