package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/internal/analysis"
	"datalens/internal/dataset"
	apierrors "datalens/internal/errors"
	"datalens/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a registry with one live session over a small
// timestamped dataset and returns the analysis routes plus the session ID.
func newTestServer(t *testing.T) (http.Handler, string) {
	t.Helper()

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	cells := make([]dataset.Cell, 10)
	values := make([]dataset.Cell, 10)
	others := make([]dataset.Cell, 10)
	for i := 0; i < 10; i++ {
		cells[i] = dataset.TimeCell(start.AddDate(0, 0, i))
		values[i] = dataset.NumberCell(float64(i + 1))
		others[i] = dataset.NumberCell(float64(10 - i))
	}
	table := dataset.Table{Columns: []dataset.Column{
		{Name: "ts", Cells: cells},
		{Name: "value", Cells: values},
		{Name: "other", Cells: others},
	}}

	logger := testLogger()
	registry := session.NewRegistry(session.DefaultTTL, logger)
	t.Cleanup(registry.Close)
	s := registry.Create(analysis.NewEngine(table, logger))

	h := NewAnalysisHandler(registry, logger, apierrors.NewErrorHandler(logger))
	return h.Routes(), s.ID
}

func postJSON(t *testing.T, handler http.Handler, path string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestBasicStatsEndpoint(t *testing.T) {
	handler, sessionID := newTestServer(t)

	rec := postJSON(t, handler, "/basic-stats", map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		BasicStats map[string]json.RawMessage `json:"basic_stats"`
		Shape      [2]int                     `json:"shape"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.BasicStats, "value")
	assert.Equal(t, [2]int{10, 3}, resp.Shape)
}

func TestUnknownSessionReturns404(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := postJSON(t, handler, "/basic-stats", map[string]any{"session_id": uuid.New().String()})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestMissingSessionIDReturns400(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := postJSON(t, handler, "/basic-stats", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestMalformedSessionIDReturns400(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := postJSON(t, handler, "/distribution", map[string]any{
		"session_id": "not-a-uuid",
		"column":     "value",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestDistributionUnknownColumnReturns422(t *testing.T) {
	handler, sessionID := newTestServer(t)

	rec := postJSON(t, handler, "/distribution", map[string]any{
		"session_id": sessionID,
		"column":     "nope",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestTimeSeriesUnknownColumnReturns404(t *testing.T) {
	handler, sessionID := newTestServer(t)

	rec := postJSON(t, handler, "/time-series", map[string]any{
		"session_id":    sessionID,
		"time_column":   "ts",
		"value_columns": []string{"nope"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestTrendAnalysisDefaultsWindowSize(t *testing.T) {
	handler, sessionID := newTestServer(t)

	rec := postJSON(t, handler, "/trend-analysis", map[string]any{
		"session_id":   sessionID,
		"time_column":  "ts",
		"value_column": "value",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		WindowSize int `json:"window_size"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.WindowSize)
}

func TestPeriodicAnalysisRejectsUnknownPeriodType(t *testing.T) {
	handler, sessionID := newTestServer(t)

	rec := postJSON(t, handler, "/periodic-analysis", map[string]any{
		"session_id":   sessionID,
		"time_column":  "ts",
		"value_column": "value",
		"period_type":  "weekly",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestHandleMissingInvalidMethodReturns400(t *testing.T) {
	handler, sessionID := newTestServer(t)

	rec := postJSON(t, handler, "/handle-missing", map[string]any{
		"session_id": sessionID,
		"method":     "median",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestComprehensiveReportEndpoint(t *testing.T) {
	handler, sessionID := newTestServer(t)

	rec := postJSON(t, handler, "/comprehensive-report", map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		DatasetInfo    json.RawMessage `json:"dataset_info"`
		Correlations   json.RawMessage `json:"correlations"`
		TimeSeriesInfo json.RawMessage `json:"time_series_info"`
		GeneratedAt    string          `json:"generated_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DatasetInfo)
	assert.NotEmpty(t, resp.Correlations)
	assert.NotEmpty(t, resp.TimeSeriesInfo)
	assert.NotEmpty(t, resp.GeneratedAt)
}
