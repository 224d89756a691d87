// Package ingest converts uploaded file bytes (delimited text, spreadsheets,
// record-oriented JSON) into the raw Table the analysis engine consumes.
// Header presence, header row index and leading-row skips are caller options;
// everything past parsing (normalization, type roles) belongs to the engine.
package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"datalens/internal/dataset"
)

// Options controls how a raw grid maps onto a table.
type Options struct {
	HasHeader bool
	HeaderRow int
	SkipRows  int
}

// DefaultOptions assumes a header in the first row with nothing skipped.
func DefaultOptions() Options {
	return Options{HasHeader: true}
}

// ErrUnsupportedFormat is returned for file extensions the reader does not
// handle.
var ErrUnsupportedFormat = fmt.Errorf("unsupported file format")

// ReadFile parses the named file's content into a raw table, dispatching on
// the file extension (csv, xls/xlsx, json).
func ReadFile(filename string, r io.Reader, opts Options) (dataset.Table, error) {
	switch normalizeExt(filename) {
	case "csv":
		return ReadCSV(r, opts)
	case "xls", "xlsx":
		return ReadExcel(r, opts)
	case "json":
		return ReadJSON(r, opts)
	default:
		return dataset.Table{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func normalizeExt(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// latin1ToUTF8 reinterprets each byte as its equivalent code point, which
// cannot fail and so serves as the decoding fallback for legacy exports.
func latin1ToUTF8(b []byte) []byte {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return []byte(sb.String())
}

// ReadCSV parses delimited text. A UTF-8 BOM is stripped, content that is
// not valid UTF-8 is reinterpreted as latin-1, and records may have ragged
// lengths; short rows pad with missing cells.
func ReadCSV(r io.Reader, opts Options) (dataset.Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("read csv content: %w", err)
	}
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(content) {
		content = latin1ToUTF8(content)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return dataset.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	return gridToTable(rows, opts)
}

// ReadExcel parses the first sheet of an xls/xlsx workbook.
func ReadExcel(r io.Reader, opts Options) (dataset.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataset.Table{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return dataset.Table{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return gridToTable(rows, opts)
}

// ReadJSON parses a record-oriented JSON array. Column order follows first
// appearance across records. Header options do not apply to JSON beyond
// SkipRows and the headerless Column_N renaming.
func ReadJSON(r io.Reader, opts Options) (dataset.Table, error) {
	records, order, err := decodeRecords(r)
	if err != nil {
		return dataset.Table{}, err
	}
	if opts.SkipRows > 0 && opts.SkipRows <= len(records) {
		records = records[opts.SkipRows:]
	}

	t := dataset.Table{Columns: make([]dataset.Column, len(order))}
	for i, name := range order {
		cells := make([]dataset.Cell, len(records))
		for r, rec := range records {
			raw, ok := rec[name]
			if !ok {
				cells[r] = dataset.Missing()
				continue
			}
			cells[r] = jsonCell(raw)
		}
		t.Columns[i] = dataset.Column{Name: name, Cells: cells}
	}
	if !opts.HasHeader {
		for i := range t.Columns {
			t.Columns[i].Name = fmt.Sprintf("Column_%d", i+1)
		}
	}
	return t, nil
}

// decodeRecords walks the JSON token stream so the first-seen key order is
// preserved; map decoding would scramble columns.
func decodeRecords(r io.Reader) ([]map[string]json.RawMessage, []string, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("parse json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, nil, fmt.Errorf("parse json: expected array of records")
	}

	var records []map[string]json.RawMessage
	var order []string
	seen := make(map[string]bool)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("parse json: %w", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, nil, fmt.Errorf("parse json: expected object record")
		}
		rec := make(map[string]json.RawMessage)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, nil, fmt.Errorf("parse json: %w", err)
			}
			key := keyTok.(string)
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, nil, fmt.Errorf("parse json value for %s: %w", key, err)
			}
			rec[key] = raw
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
		if _, err := dec.Token(); err != nil { // closing brace
			return nil, nil, fmt.Errorf("parse json: %w", err)
		}
		records = append(records, rec)
	}
	return records, order, nil
}

func jsonCell(raw json.RawMessage) dataset.Cell {
	// Unmarshal into float64 treats the null token as a no-op success, so
	// it has to be ruled out first.
	if string(bytes.TrimSpace(raw)) == "null" {
		return dataset.Missing()
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return dataset.NumberCell(num)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return textOrMissing(s)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return dataset.NumberCell(1)
		}
		return dataset.NumberCell(0)
	}
	return dataset.Missing()
}

// gridToTable applies skip/header options to a string grid and types each
// cell: parseable numbers become numeric, empty or NA-like strings missing,
// everything else text.
func gridToTable(rows [][]string, opts Options) (dataset.Table, error) {
	if opts.SkipRows > 0 {
		if opts.SkipRows >= len(rows) {
			rows = nil
		} else {
			rows = rows[opts.SkipRows:]
		}
	}
	if len(rows) == 0 {
		return dataset.Table{}, fmt.Errorf("no rows to read")
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var names []string
	dataRows := rows
	if opts.HasHeader {
		headerIdx := opts.HeaderRow
		if headerIdx < 0 || headerIdx >= len(rows) {
			return dataset.Table{}, fmt.Errorf("header row %d out of range", opts.HeaderRow)
		}
		names = make([]string, width)
		for i := 0; i < width; i++ {
			if i < len(rows[headerIdx]) {
				names[i] = rows[headerIdx][i]
			}
		}
		dataRows = rows[headerIdx+1:]
	} else {
		names = make([]string, width)
		for i := range names {
			names[i] = fmt.Sprintf("Column_%d", i+1)
		}
	}

	t := dataset.Table{Columns: make([]dataset.Column, width)}
	for i := 0; i < width; i++ {
		cells := make([]dataset.Cell, len(dataRows))
		for r, row := range dataRows {
			if i >= len(row) {
				cells[r] = dataset.Missing()
				continue
			}
			cells[r] = parseCell(row[i])
		}
		t.Columns[i] = dataset.Column{Name: names[i], Cells: cells}
	}
	return t, nil
}

func parseCell(s string) dataset.Cell {
	trimmed := strings.TrimSpace(s)
	if isMissingToken(trimmed) {
		return dataset.Missing()
	}
	if num, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", ""), 64); err == nil {
		return dataset.NumberCell(num)
	}
	return dataset.TextCell(trimmed)
}

func textOrMissing(s string) dataset.Cell {
	if isMissingToken(strings.TrimSpace(s)) {
		return dataset.Missing()
	}
	return dataset.TextCell(strings.TrimSpace(s))
}

func isMissingToken(s string) bool {
	switch strings.ToLower(s) {
	case "", "na", "n/a", "nan", "null", "none":
		return true
	}
	return false
}
