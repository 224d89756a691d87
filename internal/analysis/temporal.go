package analysis

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"datalens/internal/dataset"
)

// Period types accepted by PeriodicAnalysis.
const (
	PeriodHourly  = "hourly"
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"
)

// timePoint is one observation of a time/value pair.
type timePoint struct {
	ts  time.Time
	val float64
}

// TimeRange describes the span of a sorted series.
type TimeRange struct {
	Min  string `json:"min"`
	Max  string `json:"max"`
	Span string `json:"span"`
}

// TimeSeriesResult carries the sorted series for one or more value columns.
// Missing values serialize as null rather than being dropped.
type TimeSeriesResult struct {
	Timestamps []string                   `json:"timestamps"`
	Data       map[string][]dataset.Value `json:"data"`
	TimeRange  TimeRange                  `json:"time_range"`
}

// TimeSeries returns the given value columns ordered by the time column.
// Rows with a missing timestamp are dropped; missing values stay as nulls.
func (e *Engine) TimeSeries(timeColumn string, valueColumns []string) (*TimeSeriesResult, error) {
	if !e.isDatetime(timeColumn) {
		return nil, Errorf(KindColumnNotDatetime, "column %s is not a datetime column", timeColumn)
	}
	for _, name := range valueColumns {
		if _, ok := e.table.Column(name); !ok {
			return nil, Errorf(KindColumnNotFound, "column not found: %s", name)
		}
	}

	timeCol, _ := e.table.Column(timeColumn)
	var order []int
	for r, cell := range timeCol.Cells {
		if cell.Kind == dataset.KindTime {
			order = append(order, r)
		}
	}
	if len(order) == 0 {
		return nil, Errorf(KindNoValidData, "no valid data after cleaning")
	}
	sort.SliceStable(order, func(i, j int) bool {
		return timeCol.Cells[order[i]].Time.Before(timeCol.Cells[order[j]].Time)
	})

	timestamps := make([]string, len(order))
	for i, r := range order {
		timestamps[i] = timeCol.Cells[r].Time.Format(dataset.TimestampLayout)
	}

	data := make(map[string][]dataset.Value, len(valueColumns))
	for _, name := range valueColumns {
		col, _ := e.table.Column(name)
		series := make([]dataset.Value, len(order))
		for i, r := range order {
			series[i] = col.Cells[r].Value()
		}
		data[name] = series
	}

	first := timeCol.Cells[order[0]].Time
	last := timeCol.Cells[order[len(order)-1]].Time
	return &TimeSeriesResult{
		Timestamps: timestamps,
		Data:       data,
		TimeRange: TimeRange{
			Min:  first.Format(dataset.TimestampLayout),
			Max:  last.Format(dataset.TimestampLayout),
			Span: last.Sub(first).String(),
		},
	}, nil
}

// TrendResult pairs the original series with its rolling mean.
type TrendResult struct {
	Timestamps   []string  `json:"timestamps"`
	OriginalData []float64 `json:"original_data"`
	RollingMean  []float64 `json:"rolling_mean"`
	WindowSize   int       `json:"window_size"`
	Column       string    `json:"column"`
}

// Trend computes a trailing rolling mean over the cleaned, sorted series.
// The window has a minimum of one observation, so the first windowSize-1
// points are partial averages.
func (e *Engine) Trend(timeColumn, valueColumn string, windowSize int) (*TrendResult, error) {
	if windowSize < 1 {
		windowSize = 7
	}
	points, err := e.cleanSeries(timeColumn, valueColumn)
	if err != nil {
		return nil, err
	}

	timestamps := make([]string, len(points))
	original := make([]float64, len(points))
	rolling := make([]float64, len(points))
	sum := 0.0
	for i, p := range points {
		timestamps[i] = p.ts.Format(dataset.TimestampLayout)
		original[i] = p.val
		sum += p.val
		if i >= windowSize {
			sum -= points[i-windowSize].val
		}
		width := i + 1
		if width > windowSize {
			width = windowSize
		}
		rolling[i] = sum / float64(width)
	}

	return &TrendResult{
		Timestamps:   timestamps,
		OriginalData: original,
		RollingMean:  rolling,
		WindowSize:   windowSize,
		Column:       valueColumn,
	}, nil
}

// PeriodicResult holds per-bucket aggregates for one period type.
type PeriodicResult struct {
	Periods    []int     `json:"periods"`
	MeanValues []float64 `json:"mean_values"`
	MinValues  []float64 `json:"min_values"`
	MaxValues  []float64 `json:"max_values"`
	StdValues  []float64 `json:"std_values"`
	PeriodType string    `json:"period_type"`
	PeriodName string    `json:"period_name"`
	Column     string    `json:"column"`
}

// PeriodicAnalysis buckets the series by hour-of-day, day-of-month or
// month-of-year and reports per-bucket mean/min/max/std. A singleton
// bucket's std normalizes to 0.
func (e *Engine) PeriodicAnalysis(timeColumn, valueColumn, periodType string) (*PeriodicResult, error) {
	var bucket func(time.Time) int
	var periodName string
	switch periodType {
	case PeriodHourly:
		bucket, periodName = func(t time.Time) int { return t.Hour() }, "Hour"
	case PeriodDaily:
		bucket, periodName = func(t time.Time) int { return t.Day() }, "Day"
	case PeriodMonthly:
		bucket, periodName = func(t time.Time) int { return int(t.Month()) }, "Month"
	default:
		return nil, Errorf(KindInvalidPeriodType, "invalid period type %q", periodType)
	}

	points, err := e.cleanSeries(timeColumn, valueColumn)
	if err != nil {
		return nil, err
	}

	buckets := make(map[int][]float64)
	for _, p := range points {
		k := bucket(p.ts)
		buckets[k] = append(buckets[k], p.val)
	}

	periods := make([]int, 0, len(buckets))
	for k := range buckets {
		periods = append(periods, k)
	}
	sort.Ints(periods)

	result := &PeriodicResult{
		Periods:    periods,
		MeanValues: make([]float64, 0, len(periods)),
		MinValues:  make([]float64, 0, len(periods)),
		MaxValues:  make([]float64, 0, len(periods)),
		StdValues:  make([]float64, 0, len(periods)),
		PeriodType: periodType,
		PeriodName: periodName,
		Column:     valueColumn,
	}
	for _, k := range periods {
		vals := buckets[k]
		sorted := sortedCopy(vals)
		result.MeanValues = append(result.MeanValues, safeFloat(stat.Mean(vals, nil)))
		result.MinValues = append(result.MinValues, sorted[0])
		result.MaxValues = append(result.MaxValues, sorted[len(sorted)-1])
		result.StdValues = append(result.StdValues, safeFloat(stat.StdDev(vals, nil)))
	}
	return result, nil
}

// HalfStats summarizes one half of a period comparison.
type HalfStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// PeriodHalf is one half of the split series.
type PeriodHalf struct {
	Timestamps []string  `json:"timestamps"`
	Values     []float64 `json:"values"`
	Stats      HalfStats `json:"stats"`
}

// ComparePeriodsResult contrasts the first and second half of the series.
type ComparePeriodsResult struct {
	FirstHalf  PeriodHalf `json:"first_half"`
	SecondHalf PeriodHalf `json:"second_half"`
	Column     string     `json:"column"`
}

// ComparePeriods splits the cleaned, sorted series at the midpoint of its
// time range. Rows with a timestamp at or before the midpoint belong to the
// first half.
func (e *Engine) ComparePeriods(timeColumn, valueColumn string) (*ComparePeriodsResult, error) {
	points, err := e.cleanSeries(timeColumn, valueColumn)
	if err != nil {
		return nil, err
	}

	first := points[0].ts
	last := points[len(points)-1].ts
	mid := first.Add(last.Sub(first) / 2)

	var firstHalf, secondHalf []timePoint
	for _, p := range points {
		if !p.ts.After(mid) {
			firstHalf = append(firstHalf, p)
		} else {
			secondHalf = append(secondHalf, p)
		}
	}

	return &ComparePeriodsResult{
		FirstHalf:  summarizeHalf(firstHalf),
		SecondHalf: summarizeHalf(secondHalf),
		Column:     valueColumn,
	}, nil
}

func summarizeHalf(points []timePoint) PeriodHalf {
	half := PeriodHalf{
		Timestamps: make([]string, 0, len(points)),
		Values:     make([]float64, 0, len(points)),
	}
	for _, p := range points {
		half.Timestamps = append(half.Timestamps, p.ts.Format(dataset.TimestampLayout))
		half.Values = append(half.Values, p.val)
	}
	if len(points) == 0 {
		return half
	}
	sorted := sortedCopy(half.Values)
	half.Stats = HalfStats{
		Mean:   safeFloat(stat.Mean(half.Values, nil)),
		Median: quantile(sorted, 0.5),
		Std:    safeFloat(stat.StdDev(half.Values, nil)),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
	return half
}

// cleanSeries validates the column roles, drops rows missing either the
// timestamp or the value, and returns the series sorted by time ascending.
func (e *Engine) cleanSeries(timeColumn, valueColumn string) ([]timePoint, error) {
	if !e.isDatetime(timeColumn) {
		return nil, Errorf(KindColumnNotDatetime, "column %s is not a datetime column", timeColumn)
	}
	if !e.isNumeric(valueColumn) {
		return nil, Errorf(KindColumnNotNumeric, "column %s is not numeric", valueColumn)
	}

	timeCol, _ := e.table.Column(timeColumn)
	valCol, _ := e.table.Column(valueColumn)

	points := make([]timePoint, 0, len(timeCol.Cells))
	for r := range timeCol.Cells {
		tc, vc := timeCol.Cells[r], valCol.Cells[r]
		if tc.Kind != dataset.KindTime || vc.Kind != dataset.KindNumber {
			continue
		}
		points = append(points, timePoint{ts: tc.Time, val: vc.Number})
	}
	if len(points) == 0 {
		return nil, Errorf(KindNoValidData, "no valid data after cleaning")
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].ts.Before(points[j].ts) })
	return points, nil
}
