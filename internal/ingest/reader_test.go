package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/internal/dataset"
)

func TestReadCSV(t *testing.T) {
	input := "name,score,when\nalice,10,2023-01-01\nbob,NA,2023-01-02\n"

	table, err := ReadCSV(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 3, table.NumCols())
	assert.Equal(t, "name", table.Columns[0].Name)
	assert.Equal(t, "score", table.Columns[1].Name)
	assert.Equal(t, 2, table.NumRows())

	score := table.Columns[1]
	got, _ := score.Cells[0].Value().Float()
	assert.Equal(t, 10.0, got)
	assert.True(t, score.Cells[1].IsMissing(), "NA token must parse as missing")
	assert.Equal(t, dataset.KindText, table.Columns[2].Kind())
}

func TestReadCSVStripsBOM(t *testing.T) {
	input := "\xEF\xBB\xBFa,b\n1,2\n"

	table, err := ReadCSV(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "a", table.Columns[0].Name)
}

func TestReadCSVLatin1Fallback(t *testing.T) {
	// 0xE9 is é in latin-1 and invalid on its own in UTF-8.
	input := "city\nMontr\xE9al\n"

	table, err := ReadCSV(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, dataset.TextCell("Montréal"), table.Columns[0].Cells[0])
}

func TestReadCSVHeaderless(t *testing.T) {
	input := "1,x\n2,y\n"

	table, err := ReadCSV(strings.NewReader(input), Options{HasHeader: false})
	require.NoError(t, err)

	assert.Equal(t, "Column_1", table.Columns[0].Name)
	assert.Equal(t, "Column_2", table.Columns[1].Name)
	assert.Equal(t, 2, table.NumRows())
}

func TestReadCSVSkipRowsAndHeaderRow(t *testing.T) {
	input := "junk line,,\nname,value\na,1\nb,2\n"

	table, err := ReadCSV(strings.NewReader(input), Options{HasHeader: true, SkipRows: 1})
	require.NoError(t, err)

	assert.Equal(t, "name", table.Columns[0].Name)
	assert.Equal(t, 2, table.NumRows())
}

func TestReadCSVRaggedRowsPadWithMissing(t *testing.T) {
	input := "a,b,c\n1,2,3\n4,5\n"

	table, err := ReadCSV(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 3, table.NumCols())
	assert.True(t, table.Columns[2].Cells[1].IsMissing())
}

func TestReadCSVThousandsSeparators(t *testing.T) {
	input := "amount\n\"1,234.5\"\n"

	table, err := ReadCSV(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)
	got, ok := table.Columns[0].Cells[0].Value().Float()
	require.True(t, ok)
	assert.Equal(t, 1234.5, got)
}

func TestReadJSON(t *testing.T) {
	input := `[
		{"b": 1, "a": "x"},
		{"a": "y", "c": true},
		{"b": 3, "a": null}
	]`

	table, err := ReadJSON(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)

	// Column order follows first appearance across records.
	names := make([]string, table.NumCols())
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
	assert.Equal(t, 3, table.NumRows())

	b := table.Columns[0]
	assert.True(t, b.Cells[1].IsMissing(), "absent key must be missing")

	a := table.Columns[1]
	assert.True(t, a.Cells[2].IsMissing(), "JSON null must be missing")

	c := table.Columns[2]
	got, ok := c.Cells[1].Value().Float()
	require.True(t, ok)
	assert.Equal(t, 1.0, got, "booleans coerce to 0/1")
}

func TestReadJSONRejectsNonArray(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`{"a": 1}`), DefaultOptions())
	require.Error(t, err)
}

func TestReadFileDispatch(t *testing.T) {
	table, err := ReadFile("data.CSV", strings.NewReader("a\n1\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, table.NumRows())

	_, err = ReadFile("data.parquet", strings.NewReader(""), DefaultOptions())
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPreviewFile(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("name,value\n")
	for i := 0; i < 20; i++ {
		sb.WriteString("row,1\n")
	}

	preview, err := PreviewFile("data.csv", strings.NewReader(sb.String()))
	require.NoError(t, err)

	// The preview is headerless: the header line counts as data and the
	// columns get positional names.
	assert.Equal(t, 21, preview.TotalRows)
	assert.Len(t, preview.PreviewData, PreviewRows)
	assert.Equal(t, []string{"Column_1", "Column_2"}, preview.Columns)
	assert.Equal(t, "data.csv", preview.Filename)
}

func TestGenerateSample(t *testing.T) {
	table := GenerateSample()

	assert.Equal(t, 365, table.NumRows())
	names := make([]string, table.NumCols())
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	assert.Contains(t, names, "Timestamp")
	assert.Contains(t, names, "Efficiency")
	assert.Equal(t, dataset.KindTime, table.Columns[0].Kind())
}
