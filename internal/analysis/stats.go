package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ColumnStats is the per-column summary produced by BasicStats.
type ColumnStats struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	P25      float64 `json:"25%"`
	Median   float64 `json:"50%"`
	P75      float64 `json:"75%"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// BasicStatsResult holds summary statistics for every numeric column.
type BasicStatsResult struct {
	BasicStats map[string]ColumnStats `json:"basic_stats"`
	Shape      [2]int                 `json:"shape"`
}

// BasicStats computes count, mean, std, quartiles, min/max, skewness and
// kurtosis per numeric column. Undefined moments (constant or singleton
// columns) normalize to 0.
func (e *Engine) BasicStats() (*BasicStatsResult, error) {
	if len(e.numericCols) == 0 {
		return nil, Errorf(KindNoNumericColumns, "no numeric columns found")
	}

	out := make(map[string]ColumnStats, len(e.numericCols))
	for _, name := range e.numericCols {
		col, _ := e.table.Column(name)
		vals := numericValues(col)
		out[name] = describeColumn(vals)
	}
	return &BasicStatsResult{
		BasicStats: out,
		Shape:      e.Shape(),
	}, nil
}

func describeColumn(vals []float64) ColumnStats {
	if len(vals) == 0 {
		return ColumnStats{}
	}
	sorted := sortedCopy(vals)
	return ColumnStats{
		Count:    len(vals),
		Mean:     safeFloat(stat.Mean(vals, nil)),
		Std:      safeFloat(stat.StdDev(vals, nil)),
		Min:      sorted[0],
		P25:      quantile(sorted, 0.25),
		Median:   quantile(sorted, 0.5),
		P75:      quantile(sorted, 0.75),
		Max:      sorted[len(sorted)-1],
		Skewness: safeFloat(stat.Skew(vals, nil)),
		Kurtosis: safeFloat(stat.ExKurtosis(vals, nil)),
	}
}

// BoxStats describes a column's box plot, including IQR outliers.
type BoxStats struct {
	Q1       float64   `json:"q1"`
	Median   float64   `json:"median"`
	Q3       float64   `json:"q3"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Outliers []float64 `json:"outliers"`
}

// DistributionResult holds raw values and box statistics for one column.
type DistributionResult struct {
	HistogramData []float64 `json:"histogram_data"`
	BoxStats      BoxStats  `json:"box_stats"`
	Column        string    `json:"column"`
}

// Distribution returns the non-missing values of a numeric column together
// with its box statistics. Outliers are values strictly outside
// [q1-1.5*iqr, q3+1.5*iqr].
func (e *Engine) Distribution(column string) (*DistributionResult, error) {
	if !e.isNumeric(column) {
		return nil, Errorf(KindColumnNotNumeric, "column %s not found or not numeric", column)
	}
	col, _ := e.table.Column(column)
	vals := numericValues(col)
	if len(vals) == 0 {
		return nil, Errorf(KindNoValidData, "column %s has no values", column)
	}

	sorted := sortedCopy(vals)
	box := BoxStats{
		Q1:       quantile(sorted, 0.25),
		Median:   quantile(sorted, 0.5),
		Q3:       quantile(sorted, 0.75),
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		Outliers: []float64{},
	}

	iqr := box.Q3 - box.Q1
	lower := box.Q1 - 1.5*iqr
	upper := box.Q3 + 1.5*iqr
	for _, v := range vals {
		if v < lower || v > upper {
			box.Outliers = append(box.Outliers, v)
		}
	}

	return &DistributionResult{
		HistogramData: vals,
		BoxStats:      box,
		Column:        column,
	}, nil
}

// MissingSummary lists per-column missing counts and percentages.
type MissingSummary struct {
	Columns            []string  `json:"columns"`
	MissingCounts      []int     `json:"missing_counts"`
	MissingPercentages []float64 `json:"missing_percentages"`
}

// MissingValuesResult is the dataset-wide missing value report.
type MissingValuesResult struct {
	MissingSummary MissingSummary `json:"missing_summary"`
	TotalRows      int            `json:"total_rows"`
}

// MissingValuesSummary reports missing cell counts and percentages for every
// column.
func (e *Engine) MissingValuesSummary() *MissingValuesResult {
	rows := e.table.NumRows()
	summary := MissingSummary{
		Columns:            e.table.ColumnNames(),
		MissingCounts:      make([]int, 0, e.table.NumCols()),
		MissingPercentages: make([]float64, 0, e.table.NumCols()),
	}
	for _, c := range e.table.Columns {
		n := c.MissingCount()
		summary.MissingCounts = append(summary.MissingCounts, n)
		pct := 0.0
		if rows > 0 {
			pct = math.Round(float64(n)/float64(rows)*10000) / 100
		}
		summary.MissingPercentages = append(summary.MissingPercentages, pct)
	}
	return &MissingValuesResult{
		MissingSummary: summary,
		TotalRows:      rows,
	}
}

// quantile computes a linearly interpolated quantile over sorted values.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// safeFloat normalizes undefined statistics to 0 so they can always be
// serialized.
func safeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
