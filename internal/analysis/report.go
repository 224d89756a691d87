package analysis

import (
	"time"

	"datalens/internal/dataset"
)

// DatasetInfo summarizes the loaded table for the report header.
type DatasetInfo struct {
	Shape           [2]int   `json:"shape"`
	Columns         []string `json:"columns"`
	NumericColumns  []string `json:"numeric_columns"`
	DatetimeColumns []string `json:"datetime_columns"`
	MemoryUsage     int      `json:"memory_usage"`
}

// TimeSeriesInfo describes the primary time axis and a half-period sample
// analysis over the first numeric column.
type TimeSeriesInfo struct {
	TimeColumn string `json:"time_column"`
	TimeRange  struct {
		Start    string `json:"start"`
		End      string `json:"end"`
		Duration string `json:"duration"`
	} `json:"time_range"`
	SampleAnalysis *ComparePeriodsResult `json:"sample_analysis"`
}

// Report is the comprehensive snapshot composed from the other modules.
// Correlations is present only with at least two numeric columns;
// TimeSeriesInfo only when both a datetime and a numeric column exist.
type Report struct {
	DatasetInfo     DatasetInfo          `json:"dataset_info"`
	BasicStatistics *BasicStatsResult    `json:"basic_statistics"`
	MissingValues   *MissingValuesResult `json:"missing_values"`
	Correlations    *CorrelationResult   `json:"correlations,omitempty"`
	TimeSeriesInfo  *TimeSeriesInfo      `json:"time_series_info,omitempty"`
	GeneratedAt     string               `json:"generated_at"`
}

// ComprehensiveReport composes basic statistics, missing value analysis and,
// where the roles allow, correlation and time-series sections into one
// snapshot. Any failure from a composed module surfaces as a single
// top-level error instead of a partial report.
func (e *Engine) ComprehensiveReport() (*Report, error) {
	basic, err := e.BasicStats()
	if err != nil {
		return nil, err
	}

	report := &Report{
		DatasetInfo: DatasetInfo{
			Shape:           e.Shape(),
			Columns:         e.Columns(),
			NumericColumns:  e.NumericColumns(),
			DatetimeColumns: e.DatetimeColumns(),
			MemoryUsage:     e.table.MemoryEstimate(),
		},
		BasicStatistics: basic,
		MissingValues:   e.MissingValuesSummary(),
		GeneratedAt:     time.Now().Format(dataset.TimestampLayout),
	}

	if len(e.numericCols) >= 2 {
		corr, err := e.Correlation()
		if err != nil {
			return nil, err
		}
		report.Correlations = corr
	}

	if len(e.datetimeCols) > 0 && len(e.numericCols) > 0 {
		timeCol := e.datetimeCols[0]
		valueCol := e.numericCols[0]

		comparison, err := e.ComparePeriods(timeCol, valueCol)
		if err != nil {
			return nil, err
		}

		info := &TimeSeriesInfo{TimeColumn: timeCol, SampleAnalysis: comparison}
		col, _ := e.table.Column(timeCol)
		minTS, maxTS, ok := timeBounds(col)
		if ok {
			info.TimeRange.Start = minTS.Format(dataset.TimestampLayout)
			info.TimeRange.End = maxTS.Format(dataset.TimestampLayout)
			info.TimeRange.Duration = maxTS.Sub(minTS).String()
		}
		report.TimeSeriesInfo = info
	}

	return report, nil
}

func timeBounds(c *dataset.Column) (min, max time.Time, ok bool) {
	for _, cell := range c.Cells {
		if cell.Kind != dataset.KindTime {
			continue
		}
		if !ok {
			min, max, ok = cell.Time, cell.Time, true
			continue
		}
		if cell.Time.Before(min) {
			min = cell.Time
		}
		if cell.Time.After(max) {
			max = cell.Time
		}
	}
	return min, max, ok
}
