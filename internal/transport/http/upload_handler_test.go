package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/internal/config"
	apierrors "datalens/internal/errors"
	"datalens/internal/session"
)

func newUploadServer(t *testing.T) (http.Handler, *session.Registry) {
	t.Helper()
	logger := testLogger()
	registry := session.NewRegistry(session.DefaultTTL, logger)
	t.Cleanup(registry.Close)

	cfg := config.UploadConfig{MaxSizeMB: 1, PreviewRows: 5}
	h := NewUploadHandler(registry, cfg, logger, apierrors.NewErrorHandler(logger))
	return h.Routes(), registry
}

// uploadResponseBody mirrors UploadResponse with generic preview cells so the
// JSON round-trips without a Value unmarshaler.
type uploadResponseBody struct {
	SessionID         string             `json:"session_id"`
	Shape             [2]int             `json:"shape"`
	Columns           []string           `json:"columns"`
	DataTypes         map[string]string  `json:"data_types"`
	Preview           []map[string]any   `json:"preview"`
	DatetimeColumns   []string           `json:"datetime_columns"`
	NumericColumns    []string           `json:"numeric_columns"`
	ProcessingOptions *ProcessingOptions `json:"processing_options"`
}

func decodeUploadResponse(t *testing.T, data []byte) *uploadResponseBody {
	t.Helper()
	var resp uploadResponseBody
	require.NoError(t, json.Unmarshal(data, &resp))
	return &resp
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadFile(t *testing.T) {
	handler, registry := newUploadServer(t)

	body, contentType := multipartBody(t, "data.csv",
		"Date,Sales\n2023-01-01,100\n2023-01-02,120\n2023-01-03,90\n", nil)
	req := httptest.NewRequest(http.MethodPost, "/file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeUploadResponse(t, rec.Body.Bytes())
	assert.Equal(t, [2]int{3, 2}, resp.Shape)
	assert.Equal(t, []string{"Date", "Sales"}, resp.Columns)
	assert.Equal(t, []string{"Date"}, resp.DatetimeColumns)
	assert.Equal(t, []string{"Sales"}, resp.NumericColumns)
	require.NotNil(t, resp.ProcessingOptions)
	assert.True(t, resp.ProcessingOptions.HasHeader)
	assert.Len(t, resp.Preview, 3)

	_, err := registry.Get(resp.SessionID)
	assert.NoError(t, err, "upload must register a live session")
}

func TestUploadFileUnsupportedFormat(t *testing.T) {
	handler, _ := newUploadServer(t)

	body, contentType := multipartBody(t, "data.parquet", "binary", nil)
	req := httptest.NewRequest(http.MethodPost, "/file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestUploadFileInvalidOptions(t *testing.T) {
	handler, _ := newUploadServer(t)

	body, contentType := multipartBody(t, "data.csv", "a\n1\n",
		map[string]string{"skip_rows": "-1"})
	req := httptest.NewRequest(http.MethodPost, "/file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestPreviewEndpoint(t *testing.T) {
	handler, registry := newUploadServer(t)

	body, contentType := multipartBody(t, "data.csv", "a,b\n1,2\n3,4\n", nil)
	req := httptest.NewRequest(http.MethodPost, "/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		TotalRows int      `json:"total_rows"`
		Columns   []string `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalRows)
	assert.Equal(t, []string{"Column_1", "Column_2"}, resp.Columns)
	assert.Equal(t, 0, registry.Len(), "preview must not create a session")
}

func TestLoadSample(t *testing.T) {
	handler, registry := newUploadServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sample", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeUploadResponse(t, rec.Body.Bytes())
	assert.Equal(t, [2]int{365, 6}, resp.Shape)
	assert.Contains(t, resp.DatetimeColumns, "Timestamp")
	assert.Equal(t, 1, registry.Len())
}
