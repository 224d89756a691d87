package errors

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"datalens/internal/analysis"
	"datalens/internal/middleware"
	"datalens/internal/session"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	if stderrors.Is(err, session.ErrSessionNotFound) {
		return NewProblemDetails(
			http.StatusNotFound,
			TypeSessionNotFound,
			"Session Not Found",
			"The session does not exist or has expired. Upload the dataset again.",
			r.URL.Path,
		)
	}

	var analysisErr *analysis.Error
	if stderrors.As(err, &analysisErr) {
		return analysisErrorToProblem(analysisErr, r)
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErrorToProblem(apiErr, r)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// analysisErrorToProblem maps the engine's data-dependent failure kinds onto
// HTTP statuses: unknown columns are 404, caller mistakes (bad method or
// period type) are 400, and everything data-shaped is 422.
func analysisErrorToProblem(err *analysis.Error, r *http.Request) *ProblemDetails {
	status := http.StatusUnprocessableEntity
	switch err.Kind {
	case analysis.KindColumnNotFound:
		status = http.StatusNotFound
	case analysis.KindInvalidMethod, analysis.KindInvalidPeriodType:
		status = http.StatusBadRequest
	}

	return NewProblemDetails(
		status,
		TypeAnalysisFailed,
		"Analysis Failed",
		err.Message,
		r.URL.Path,
	).WithExtension("error_kind", string(err.Kind))
}

// apiErrorToProblem converts APIError to ProblemDetails
func apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "MISSING_PARAMETER", "INVALID_PARAMETER":
		problemType = TypeValidation
	case "INGEST_FAILED":
		problemType = TypeIngestFailed
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "SESSION_NOT_FOUND":
		problemType = TypeSessionNotFound
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "PAYLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	case "UNSUPPORTED_FORMAT":
		problemType = TypeUnsupported
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	)
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}
