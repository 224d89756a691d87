package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"datalens/internal/dataset"
)

const topCorrelationLimit = 10

// CorrelationMatrix is the full pairwise Pearson matrix over numeric columns.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// CorrelationPair is one unordered column pair with its correlation.
type CorrelationPair struct {
	Variable1   string  `json:"variable1"`
	Variable2   string  `json:"variable2"`
	Correlation float64 `json:"correlation"`
}

// CorrelationResult holds the matrix plus the ranked top pairs.
type CorrelationResult struct {
	CorrelationMatrix CorrelationMatrix `json:"correlation_matrix"`
	TopCorrelations   []CorrelationPair `json:"top_correlations"`
}

// Correlation computes pairwise Pearson correlation over all numeric columns
// using pairwise-complete observations. Undefined cells (zero variance, too
// few paired values) become 0. TopCorrelations lists each upper-triangle
// pair with |r| < 1 once, sorted by descending absolute correlation and
// truncated to the top 10.
func (e *Engine) Correlation() (*CorrelationResult, error) {
	if len(e.numericCols) < 2 {
		return nil, Errorf(KindInsufficientColumns, "at least two numeric columns required")
	}

	n := len(e.numericCols)
	cols := make([]*dataset.Column, n)
	for i, name := range e.numericCols {
		cols[i], _ = e.table.Column(name)
	}

	// The diagonal follows the same undefined-collapses-to-0 rule as the
	// off-diagonal cells: a zero-variance column self-correlates to 0, not 1.
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = selfCorrelation(cols[i])
	}

	var pairs []CorrelationPair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := pairwiseCorrelation(cols[i], cols[j])
			values[i][j] = r
			values[j][i] = r
			if math.Abs(r) < 1.0 {
				pairs = append(pairs, CorrelationPair{
					Variable1:   e.numericCols[i],
					Variable2:   e.numericCols[j],
					Correlation: r,
				})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Correlation) > math.Abs(pairs[b].Correlation)
	})
	if len(pairs) > topCorrelationLimit {
		pairs = pairs[:topCorrelationLimit]
	}
	if pairs == nil {
		pairs = []CorrelationPair{}
	}

	return &CorrelationResult{
		CorrelationMatrix: CorrelationMatrix{
			Columns: e.NumericColumns(),
			Values:  values,
		},
		TopCorrelations: pairs,
	}, nil
}

// selfCorrelation is 1 when the column's correlation with itself is defined
// (at least two values with nonzero variance) and 0 otherwise.
func selfCorrelation(c *dataset.Column) float64 {
	vals := numericValues(c)
	if len(vals) < 2 {
		return 0
	}
	for _, v := range vals[1:] {
		if v != vals[0] {
			return 1
		}
	}
	return 0
}

// pairwiseCorrelation computes Pearson correlation over rows where both
// cells are present; anything undefined collapses to 0.
func pairwiseCorrelation(a, b *dataset.Column) float64 {
	var xs, ys []float64
	for r := 0; r < len(a.Cells); r++ {
		ca, cb := a.Cells[r], b.Cells[r]
		if ca.Kind == dataset.KindNumber && cb.Kind == dataset.KindNumber {
			xs = append(xs, ca.Number)
			ys = append(ys, cb.Number)
		}
	}
	if len(xs) < 2 {
		return 0
	}
	return safeFloat(stat.Correlation(xs, ys, nil))
}
