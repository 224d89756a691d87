package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"datalens/internal/analysis"
	"datalens/internal/config"
	"datalens/internal/dataset"
	apierrors "datalens/internal/errors"
	"datalens/internal/ingest"
	"datalens/internal/session"
)

// UploadHandler turns uploaded files into analysis sessions.
type UploadHandler struct {
	registry     *session.Registry
	cfg          config.UploadConfig
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewUploadHandler creates an upload handler.
func NewUploadHandler(registry *session.Registry, cfg config.UploadConfig, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *UploadHandler {
	return &UploadHandler{
		registry:     registry,
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "upload_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the upload routes.
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/file", h.UploadFile)
	r.Post("/preview", h.PreviewFile)
	r.Post("/sample", h.LoadSample)

	return r
}

// UploadResponse describes a freshly created session.
type UploadResponse struct {
	SessionID         string                     `json:"session_id"`
	Shape             [2]int                     `json:"shape"`
	Columns           []string                   `json:"columns"`
	DataTypes         map[string]string          `json:"data_types"`
	Preview           []map[string]dataset.Value `json:"preview"`
	DatetimeColumns   []string                   `json:"datetime_columns"`
	NumericColumns    []string                   `json:"numeric_columns"`
	ProcessingOptions *ProcessingOptions         `json:"processing_options,omitempty"`
}

// ProcessingOptions echoes the ingestion options the upload used.
type ProcessingOptions struct {
	HasHeader bool `json:"has_header"`
	SkipRows  int  `json:"skip_rows"`
	HeaderRow int  `json:"header_row"`
}

// UploadFile handles POST /api/upload/file: multipart form with the file
// plus has_header, skip_rows and header_row fields.
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.MaxSizeBytes()); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "File is required"))
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxSizeBytes() {
		h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		return
	}

	opts, err := parseOptions(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	raw, err := ingest.ReadFile(header.Filename, file, opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.IngestError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "file uploaded",
		slog.String("filename", header.Filename),
		slog.Int64("size_bytes", header.Size),
		slog.Bool("has_header", opts.HasHeader),
		slog.Int("skip_rows", opts.SkipRows),
	)

	resp := h.createSession(raw)
	resp.ProcessingOptions = &ProcessingOptions{
		HasHeader: opts.HasHeader,
		SkipRows:  opts.SkipRows,
		HeaderRow: opts.HeaderRow,
	}
	render.JSON(w, r, resp)
}

// PreviewFile handles POST /api/upload/preview: returns the raw head of a
// file without creating a session.
func (h *UploadHandler) PreviewFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.MaxSizeBytes()); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "File is required"))
		return
	}
	defer file.Close()

	preview, err := ingest.PreviewFile(header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.IngestError(err))
		return
	}
	render.JSON(w, r, preview)
}

// LoadSample handles POST /api/upload/sample: creates a session over the
// generated sample dataset.
func (h *UploadHandler) LoadSample(w http.ResponseWriter, r *http.Request) {
	resp := h.createSession(ingest.GenerateSample())
	render.JSON(w, r, resp)
}

func (h *UploadHandler) createSession(raw dataset.Table) *UploadResponse {
	engine := analysis.NewEngine(raw, h.logger)
	s := h.registry.Create(engine)

	return &UploadResponse{
		SessionID:       s.ID,
		Shape:           engine.Shape(),
		Columns:         engine.Columns(),
		DataTypes:       engine.ColumnTypes(),
		Preview:         engine.Preview(h.cfg.PreviewRows),
		DatetimeColumns: engine.DatetimeColumns(),
		NumericColumns:  engine.NumericColumns(),
	}
}

func parseOptions(r *http.Request) (ingest.Options, error) {
	opts := ingest.DefaultOptions()

	if v := r.FormValue("has_header"); v != "" {
		hasHeader, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apierrors.ErrValidation("has_header", "must be a boolean")
		}
		opts.HasHeader = hasHeader
	}
	if v := r.FormValue("skip_rows"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			return opts, apierrors.ErrValidation("skip_rows", "must be a non-negative integer")
		}
		opts.SkipRows = skip
	}
	if v := r.FormValue("header_row"); v != "" {
		headerRow, err := strconv.Atoi(v)
		if err != nil || headerRow < 0 {
			return opts, apierrors.ErrValidation("header_row", "must be a non-negative integer")
		}
		opts.HeaderRow = headerRow
	}
	return opts, nil
}
