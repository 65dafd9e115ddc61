// Package errs defines the typed error kinds of spec.md §7, wrapped with
// the teacher's fmt.Errorf("...: %w", err) convention so callers can still
// unwrap to the underlying cause with errors.Is/errors.As.
package errs

import "fmt"

// ValidationError signals a caller/input mistake: a missing path, a
// missing required request field, an unknown write mode, UPSERT without
// keys, or a reference to an unknown column. Never retried.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// FormatError signals an unclassifiable, blank, or unrepairable file.
type FormatError struct {
	Message string
	Cause   error
}

func (e *FormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("format error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("format error: %s", e.Message)
}

func (e *FormatError) Unwrap() error { return e.Cause }

func NewFormatError(format string, args ...any) *FormatError {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}

// AtomicLoadError signals a load that failed the atomicity check: row
// count mismatch after recovery, or JSONL repair with unrecoverable
// lines. The table is never registered when this is returned.
type AtomicLoadError struct {
	Message          string
	SourceRows       int64
	LoadedRows       int64
	EmptyRowsRemoved int64
	ParseStrategy    string
	Cause            error
}

func (e *AtomicLoadError) Error() string {
	return fmt.Sprintf(
		"atomic load error: %s (source_rows=%d loaded_rows=%d empty_rows_removed=%d parse_strategy=%s); try inspect_raw_file",
		e.Message, e.SourceRows, e.LoadedRows, e.EmptyRowsRemoved, e.ParseStrategy,
	)
}

func (e *AtomicLoadError) Unwrap() error { return e.Cause }

// EngineError wraps an analytic-engine binder or execution failure. For
// column-binder errors AvailableColumns is populated so the message is
// self-explanatory, per spec.md §7.
type EngineError struct {
	SQL              string
	AvailableColumns []string
	Cause            error
}

func (e *EngineError) Error() string {
	if len(e.AvailableColumns) > 0 {
		return fmt.Sprintf("engine error executing %q: %v (available columns: %v)", e.SQL, e.Cause, e.AvailableColumns)
	}
	return fmt.Sprintf("engine error executing %q: %v", e.SQL, e.Cause)
}

func (e *EngineError) Unwrap() error { return e.Cause }

// ExternalError wraps a storage/classifier/lakehouse I/O failure. The
// core never retries this itself; the event bus may redeliver.
type ExternalError struct {
	Service string
	Cause   error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("external error calling %s: %v", e.Service, e.Cause)
}

func (e *ExternalError) Unwrap() error { return e.Cause }

func NewExternalError(service string, cause error) *ExternalError {
	return &ExternalError{Service: service, Cause: cause}
}

// DestructiveSQLError is raised by the analytic session's safe-execution
// path when a statement matches a destructive pattern. It is surfaced to
// callers as a ValidationError per spec.md §7's propagation rule.
func NewDestructiveSQLError(rejectedSQL string) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("DELETE/DROP TABLE/TRUNCATE/DROP DATABASE are not allowed via safe execution; rejected_sql=%q", rejectedSQL),
	}
}

// StageName identifies which pipeline stage an error occurred in, for the
// orchestrator's failure-event payload (spec.md §7).
type StageName string

const (
	StageLoad      StageName = "load"
	StageScan      StageName = "quality_scan"
	StageClean     StageName = "cleaning"
	StageExport    StageName = "export"
	StageLakehouse StageName = "lakehouse_load"
	StageArchive   StageName = "archive"
	StagePipeline  StageName = "agent_pipeline"
)

// ClassName returns the underlying error kind's name, for the failure
// event's error_class field.
func ClassName(err error) string {
	switch err.(type) {
	case *ValidationError:
		return "ValidationError"
	case *FormatError:
		return "FormatError"
	case *AtomicLoadError:
		return "AtomicLoadError"
	case *EngineError:
		return "EngineError"
	case *ExternalError:
		return "ExternalError"
	default:
		return "Error"
	}
}
