// Package http provides the chi handlers for the upload and analysis API
// consumed by the dashboard frontend.
package http

import (
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"datalens/internal/analysis"
	apierrors "datalens/internal/errors"
	"datalens/internal/session"
)

// AnalysisHandler serves the per-session analysis operations.
type AnalysisHandler struct {
	registry     *session.Registry
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validate     *validator.Validate
}

// NewAnalysisHandler creates an analysis handler bound to the session
// registry.
func NewAnalysisHandler(registry *session.Registry, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		registry:     registry,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
		validate:     newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Routes returns the analysis routes.
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/basic-stats", h.BasicStats)
	r.Post("/distribution", h.Distribution)
	r.Post("/missing-values", h.MissingValues)
	r.Post("/handle-missing", h.HandleMissing)
	r.Post("/correlation", h.Correlation)
	r.Post("/time-series", h.TimeSeries)
	r.Post("/trend-analysis", h.TrendAnalysis)
	r.Post("/seasonal-decomposition", h.SeasonalDecomposition)
	r.Post("/periodic-analysis", h.PeriodicAnalysis)
	r.Post("/time-period-comparison", h.TimePeriodComparison)
	r.Post("/comprehensive-report", h.ComprehensiveReport)

	return r
}

// Request bodies. session_id is required everywhere; operation-specific
// fields carry their own validation tags.

type sessionRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid4"`
}

type distributionRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid4"`
	Column    string `json:"column" validate:"required"`
}

type missingValuesRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid4"`
	Method    string `json:"method" validate:"required"`
}

type timeSeriesRequest struct {
	SessionID    string   `json:"session_id" validate:"required,uuid4"`
	TimeColumn   string   `json:"time_column" validate:"required"`
	ValueColumns []string `json:"value_columns" validate:"required,min=1"`
}

type trendRequest struct {
	SessionID   string `json:"session_id" validate:"required,uuid4"`
	TimeColumn  string `json:"time_column" validate:"required"`
	ValueColumn string `json:"value_column" validate:"required"`
	WindowSize  int    `json:"window_size" validate:"omitempty,min=1"`
}

type decompositionRequest struct {
	SessionID   string `json:"session_id" validate:"required,uuid4"`
	TimeColumn  string `json:"time_column" validate:"required"`
	ValueColumn string `json:"value_column" validate:"required"`
	Period      int    `json:"period" validate:"omitempty,min=2"`
}

type periodicRequest struct {
	SessionID   string `json:"session_id" validate:"required,uuid4"`
	TimeColumn  string `json:"time_column" validate:"required"`
	ValueColumn string `json:"value_column" validate:"required"`
	PeriodType  string `json:"period_type" validate:"omitempty,oneof=hourly daily monthly"`
}

// decode parses and validates a JSON request body.
func (h *AnalysisHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.errorHandler.HandleError(w, r, validationError(err))
		return false
	}
	return true
}

func validationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		fields := make([]apierrors.ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apierrors.ValidationError{
				Field:   fe.Field(),
				Message: "failed validation rule: " + fe.Tag(),
			})
		}
		return apierrors.NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", fields)
	}
	return apierrors.InvalidRequestWithError(err)
}

// withEngine resolves the session and runs fn under its lock.
func (h *AnalysisHandler) withEngine(w http.ResponseWriter, r *http.Request, sessionID string, fn func(*analysis.Engine) (any, error)) {
	s, err := h.registry.Get(sessionID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var result any
	err = s.Do(func(e *analysis.Engine) error {
		var innerErr error
		result, innerErr = fn(e)
		return innerErr
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// BasicStats handles POST /api/analysis/basic-stats
func (h *AnalysisHandler) BasicStats(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.BasicStats()
	})
}

// Distribution handles POST /api/analysis/distribution
func (h *AnalysisHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	var req distributionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.Distribution(req.Column)
	})
}

// MissingValues handles POST /api/analysis/missing-values
func (h *AnalysisHandler) MissingValues(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.MissingValuesSummary(), nil
	})
}

// HandleMissing handles POST /api/analysis/handle-missing
func (h *AnalysisHandler) HandleMissing(w http.ResponseWriter, r *http.Request) {
	var req missingValuesRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.HandleMissingValues(req.Method)
	})
}

// Correlation handles POST /api/analysis/correlation
func (h *AnalysisHandler) Correlation(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.Correlation()
	})
}

// TimeSeries handles POST /api/analysis/time-series
func (h *AnalysisHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	var req timeSeriesRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.TimeSeries(req.TimeColumn, req.ValueColumns)
	})
}

// TrendAnalysis handles POST /api/analysis/trend-analysis
func (h *AnalysisHandler) TrendAnalysis(w http.ResponseWriter, r *http.Request) {
	var req trendRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.WindowSize == 0 {
		req.WindowSize = 7
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.Trend(req.TimeColumn, req.ValueColumn, req.WindowSize)
	})
}

// SeasonalDecomposition handles POST /api/analysis/seasonal-decomposition
func (h *AnalysisHandler) SeasonalDecomposition(w http.ResponseWriter, r *http.Request) {
	var req decompositionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Period == 0 {
		req.Period = 30
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.SeasonalDecompose(req.TimeColumn, req.ValueColumn, req.Period)
	})
}

// PeriodicAnalysis handles POST /api/analysis/periodic-analysis
func (h *AnalysisHandler) PeriodicAnalysis(w http.ResponseWriter, r *http.Request) {
	var req periodicRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.PeriodType == "" {
		req.PeriodType = analysis.PeriodDaily
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.PeriodicAnalysis(req.TimeColumn, req.ValueColumn, req.PeriodType)
	})
}

// TimePeriodComparison handles POST /api/analysis/time-period-comparison
func (h *AnalysisHandler) TimePeriodComparison(w http.ResponseWriter, r *http.Request) {
	var req timeSeriesRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.ComparePeriods(req.TimeColumn, req.ValueColumns[0])
	})
}

// ComprehensiveReport handles POST /api/analysis/comprehensive-report
func (h *AnalysisHandler) ComprehensiveReport(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withEngine(w, r, req.SessionID, func(e *analysis.Engine) (any, error) {
		return e.ComprehensiveReport()
	})
}
