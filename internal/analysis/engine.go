// Package analysis implements the tabular data analysis engine: descriptive
// statistics, missing-value remediation, correlation analysis and the family
// of time-series operations that back the dashboard. An Engine owns exactly
// one normalized table plus its derived column roles; every analysis call is
// a synchronous read, except HandleMissingValues which mutates the table.
// The engine holds no internal synchronization, so callers sharing one
// instance must serialize mutating and read calls themselves.
package analysis

import (
	"log/slog"
	"sort"

	"datalens/internal/dataset"
)

// Engine holds one dataset and its column-role lists for the lifetime of a
// session.
type Engine struct {
	table        dataset.Table
	datetimeCols []string
	numericCols  []string
	logger       *slog.Logger
}

// NewEngine normalizes the raw table, runs datetime inference once, derives
// the numeric role list and returns an engine ready for analysis calls.
func NewEngine(raw dataset.Table, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	t := dataset.Normalize(raw)
	t, datetimeCols := dataset.InferDatetimeColumns(t)

	e := &Engine{
		table:        t,
		datetimeCols: datetimeCols,
		logger:       logger.With(slog.String("component", "analysis_engine")),
	}
	e.refreshNumericColumns()

	e.logger.Info("dataset loaded",
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", t.NumCols()),
		slog.Int("numeric_columns", len(e.numericCols)),
		slog.Int("datetime_columns", len(e.datetimeCols)),
	)
	return e
}

// refreshNumericColumns recomputes the numeric role list from the current
// table. Datetime roles are fixed at load and never refreshed.
func (e *Engine) refreshNumericColumns() {
	e.numericCols = e.table.ColumnsOfKind(dataset.KindNumber)
}

// Shape returns [rows, columns].
func (e *Engine) Shape() [2]int {
	return [2]int{e.table.NumRows(), e.table.NumCols()}
}

// Columns returns the column names in order.
func (e *Engine) Columns() []string { return e.table.ColumnNames() }

// NumericColumns returns the current numeric role list.
func (e *Engine) NumericColumns() []string {
	return append([]string(nil), e.numericCols...)
}

// DatetimeColumns returns the datetime role list derived at load time.
func (e *Engine) DatetimeColumns() []string {
	return append([]string(nil), e.datetimeCols...)
}

// ColumnTypes maps each column name to its inferred type label.
func (e *Engine) ColumnTypes() map[string]string {
	types := make(map[string]string, e.table.NumCols())
	for _, c := range e.table.Columns {
		types[c.Name] = c.Kind().String()
	}
	return types
}

// Preview returns the first n rows as JSON-safe records.
func (e *Engine) Preview(n int) []map[string]dataset.Value {
	rows := e.table.NumRows()
	if n > rows {
		n = rows
	}
	records := make([]map[string]dataset.Value, 0, n)
	for r := 0; r < n; r++ {
		rec := make(map[string]dataset.Value, e.table.NumCols())
		for _, c := range e.table.Columns {
			rec[c.Name] = c.Cells[r].Value()
		}
		records = append(records, rec)
	}
	return records
}

func (e *Engine) isNumeric(name string) bool {
	for _, c := range e.numericCols {
		if c == name {
			return true
		}
	}
	return false
}

func (e *Engine) isDatetime(name string) bool {
	for _, c := range e.datetimeCols {
		if c == name {
			return true
		}
	}
	return false
}

// numericValues returns the non-missing values of a numeric column.
func numericValues(c *dataset.Column) []float64 {
	vals := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Kind == dataset.KindNumber {
			vals = append(vals, cell.Number)
		}
	}
	return vals
}

func sortedCopy(vals []float64) []float64 {
	out := append([]float64(nil), vals...)
	sort.Float64s(out)
	return out
}
