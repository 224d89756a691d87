package analysis

import "fmt"

// Kind identifies the data-dependent failure classes an analysis call can
// report. Every operation converts its own computation faults into one of
// these; nothing else escapes the engine.
type Kind string

const (
	KindColumnNotFound            Kind = "COLUMN_NOT_FOUND"
	KindColumnNotNumeric          Kind = "COLUMN_NOT_NUMERIC"
	KindColumnNotDatetime         Kind = "COLUMN_NOT_DATETIME"
	KindInsufficientColumns       Kind = "INSUFFICIENT_COLUMNS"
	KindInsufficientDataForPeriod Kind = "INSUFFICIENT_DATA_FOR_PERIOD"
	KindInvalidMethod             Kind = "INVALID_METHOD"
	KindInvalidPeriodType         Kind = "INVALID_PERIOD_TYPE"
	KindNoValidData               Kind = "NO_VALID_DATA"
	KindNoNumericColumns          Kind = "NO_NUMERIC_COLUMNS"
)

// Error is a tagged analysis failure with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Errorf builds a tagged analysis error.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the analysis failure kind from an error, if present.
func KindOf(err error) (Kind, bool) {
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return "", false
}
