package ingest

import (
	"fmt"
	"io"

	"datalens/internal/dataset"
)

// PreviewRows is how many leading rows a preview returns.
const PreviewRows = 15

// Preview is the raw head of a file before any processing options apply,
// used by the UI to let the user pick header and skip settings.
type Preview struct {
	PreviewData [][]dataset.Value `json:"preview_data"`
	Columns     []string          `json:"columns"`
	TotalRows   int               `json:"total_rows"`
	Filename    string            `json:"filename"`
}

// PreviewFile parses the file headerless and returns its first rows with
// positional Column_N names plus the total row count.
func PreviewFile(filename string, r io.Reader) (*Preview, error) {
	t, err := ReadFile(filename, r, Options{HasHeader: false})
	if err != nil {
		return nil, err
	}

	rows := t.NumRows()
	limit := rows
	if limit > PreviewRows {
		limit = PreviewRows
	}

	data := make([][]dataset.Value, limit)
	for r := 0; r < limit; r++ {
		row := make([]dataset.Value, t.NumCols())
		for c, col := range t.Columns {
			row[c] = col.Cells[r].Value()
		}
		data[r] = row
	}

	columns := make([]string, t.NumCols())
	for i := range columns {
		columns[i] = fmt.Sprintf("Column_%d", i+1)
	}

	return &Preview{
		PreviewData: data,
		Columns:     columns,
		TotalRows:   rows,
		Filename:    filename,
	}, nil
}
