package analysis

import (
	"log/slog"

	"datalens/internal/dataset"
)

// Remediation methods accepted by HandleMissingValues.
const (
	MethodDrop         = "drop"
	MethodInterpolate  = "interpolate"
	MethodForwardFill  = "forward_fill"
	MethodBackwardFill = "backward_fill"
)

// HandleMissingResult reports the table shape before and after remediation.
type HandleMissingResult struct {
	OriginalShape [2]int `json:"original_shape"`
	NewShape      [2]int `json:"new_shape"`
	Message       string `json:"message"`
}

// HandleMissingValues mutates the owned table: "drop" removes every row with
// a missing cell, "interpolate" linearly interpolates numeric columns, and
// "forward_fill"/"backward_fill" propagate the nearest non-missing neighbor.
// The numeric role list is recomputed afterwards; datetime roles stay fixed.
func (e *Engine) HandleMissingValues(method string) (*HandleMissingResult, error) {
	original := e.Shape()

	switch method {
	case MethodDrop:
		e.dropMissingRows()
	case MethodInterpolate:
		e.interpolateNumeric()
	case MethodForwardFill:
		e.fill(true)
	case MethodBackwardFill:
		e.fill(false)
	default:
		return nil, Errorf(KindInvalidMethod, "invalid method %q", method)
	}

	e.refreshNumericColumns()
	newShape := e.Shape()

	e.logger.Info("missing values handled",
		slog.String("method", method),
		slog.Int("rows_before", original[0]),
		slog.Int("rows_after", newShape[0]),
	)

	return &HandleMissingResult{
		OriginalShape: original,
		NewShape:      newShape,
		Message:       "Missing values handled using " + method + " method",
	}, nil
}

func (e *Engine) dropMissingRows() {
	rows := e.table.NumRows()
	keep := make([]int, 0, rows)
	for r := 0; r < rows; r++ {
		complete := true
		for _, c := range e.table.Columns {
			if c.Cells[r].IsMissing() {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, r)
		}
	}
	e.table = dataset.SelectRows(e.table, keep)
}

// interpolateNumeric fills interior gaps in numeric columns by linear
// interpolation between the surrounding values. Trailing gaps take the last
// observed value; leading gaps stay missing.
func (e *Engine) interpolateNumeric() {
	for i := range e.table.Columns {
		c := &e.table.Columns[i]
		if c.Kind() != dataset.KindNumber {
			continue
		}
		lastIdx := -1
		for j := 0; j < len(c.Cells); j++ {
			if !c.Cells[j].IsMissing() {
				if lastIdx >= 0 && j-lastIdx > 1 {
					start := c.Cells[lastIdx].Number
					end := c.Cells[j].Number
					span := float64(j - lastIdx)
					for k := lastIdx + 1; k < j; k++ {
						frac := float64(k-lastIdx) / span
						c.Cells[k] = dataset.NumberCell(start + (end-start)*frac)
					}
				}
				lastIdx = j
			}
		}
		// Trailing gap: extend the last observation forward.
		if lastIdx >= 0 {
			for j := lastIdx + 1; j < len(c.Cells); j++ {
				c.Cells[j] = c.Cells[lastIdx]
			}
		}
	}
}

func (e *Engine) fill(forward bool) {
	for i := range e.table.Columns {
		c := &e.table.Columns[i]
		if forward {
			last := dataset.Missing()
			for j := 0; j < len(c.Cells); j++ {
				if c.Cells[j].IsMissing() {
					c.Cells[j] = last
				} else {
					last = c.Cells[j]
				}
			}
		} else {
			next := dataset.Missing()
			for j := len(c.Cells) - 1; j >= 0; j-- {
				if c.Cells[j].IsMissing() {
					c.Cells[j] = next
				} else {
					next = c.Cells[j]
				}
			}
		}
	}
}
