// Package dataset defines the in-memory tabular data model shared by the
// ingestion layer and the analysis engine: an ordered collection of named
// columns whose cells are a closed union of number, text, timestamp and
// missing. It also owns the two load-time passes that every dataset goes
// through exactly once: schema normalization and datetime inference.
package dataset

import (
	"encoding/json"
	"math"
	"time"
)

// TimestampLayout is the canonical serialization format for timestamps.
// All analysis results render times through this layout; native time values
// never cross the reporting boundary.
const TimestampLayout = "2006-01-02T15:04:05"

// CellKind discriminates the closed set of cell types a Table can hold.
type CellKind int

const (
	KindMissing CellKind = iota
	KindNumber
	KindText
	KindTime
)

func (k CellKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindTime:
		return "timestamp"
	default:
		return "missing"
	}
}

// Cell is a single typed value. The zero value is a missing cell.
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
	Time   time.Time
}

// Missing returns a missing cell.
func Missing() Cell { return Cell{} }

// NumberCell returns a numeric cell. NaN and infinities are stored as
// missing so they can never leak into serialized output.
func NumberCell(v float64) Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing()
	}
	return Cell{Kind: KindNumber, Number: v}
}

// TextCell returns a text cell.
func TextCell(s string) Cell { return Cell{Kind: KindText, Text: s} }

// TimeCell returns a timestamp cell.
func TimeCell(t time.Time) Cell { return Cell{Kind: KindTime, Time: t} }

// IsMissing reports whether the cell holds no value.
func (c Cell) IsMissing() bool { return c.Kind == KindMissing }

// Value converts the cell to its JSON-safe scalar representation.
func (c Cell) Value() Value {
	switch c.Kind {
	case KindNumber:
		return Number(c.Number)
	case KindText:
		return Text(c.Text)
	case KindTime:
		return Text(c.Time.Format(TimestampLayout))
	default:
		return Null()
	}
}

// Column is an ordered, named sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// Kind classifies the column by its non-missing cells: a column is numeric
// (or timestamp) only when every non-missing cell agrees on that kind and at
// least one such cell exists. Mixed and all-missing columns classify as text.
func (c Column) Kind() CellKind {
	kind := KindMissing
	for _, cell := range c.Cells {
		if cell.IsMissing() {
			continue
		}
		if kind == KindMissing {
			kind = cell.Kind
			continue
		}
		if cell.Kind != kind {
			return KindText
		}
	}
	if kind == KindMissing {
		return KindText
	}
	return kind
}

// MissingCount returns the number of missing cells.
func (c Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.IsMissing() {
			n++
		}
	}
	return n
}

// Table is an ordered sequence of equally long columns.
type Table struct {
	Columns []Column
}

// NumRows returns the row count. Columns are kept equally long, so the first
// column is authoritative.
func (t Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// NumCols returns the column count.
func (t Table) NumCols() int { return len(t.Columns) }

// ColumnNames returns the column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column and whether it exists.
func (t Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out.Columns[i] = Column{Name: c.Name, Cells: cells}
	}
	return out
}

// ColumnsOfKind returns the names of all columns classifying as kind.
func (t Table) ColumnsOfKind(kind CellKind) []string {
	var names []string
	for _, c := range t.Columns {
		if c.Kind() == kind {
			names = append(names, c.Name)
		}
	}
	return names
}

// MemoryEstimate approximates the table's in-memory footprint in bytes.
func (t Table) MemoryEstimate() int {
	total := 0
	for _, c := range t.Columns {
		total += len(c.Name)
		for _, cell := range c.Cells {
			switch cell.Kind {
			case KindText:
				total += 16 + len(cell.Text)
			default:
				total += 16
			}
		}
	}
	return total
}

type valueKind int

const (
	valueNull valueKind = iota
	valueNumber
	valueText
)

// Value is a JSON-safe scalar: a finite number, a string, or null. It is the
// only shape analysis results use for dynamic cells, which keeps the
// reporting boundary free of NaN, Infinity and native date objects.
type Value struct {
	kind valueKind
	num  float64
	str  string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number returns a numeric value; NaN and infinities collapse to null.
func Number(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Null()
	}
	return Value{kind: valueNumber, num: v}
}

// Text returns a string value.
func Text(s string) Value { return Value{kind: valueText, str: s} }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == valueNull }

// Float returns the numeric payload and whether the value is a number.
func (v Value) Float() (float64, bool) { return v.num, v.kind == valueNumber }

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueNumber:
		return json.Marshal(v.num)
	case valueText:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}
