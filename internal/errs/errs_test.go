package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datagruntio/cleanroom/internal/errs"
)

func TestClassName(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"validation", errs.NewValidationError("bad input"), "ValidationError"},
		{"format", errs.NewFormatError("unrecognized"), "FormatError"},
		{"atomic load", &errs.AtomicLoadError{Message: "mismatch"}, "AtomicLoadError"},
		{"engine", &errs.EngineError{SQL: "SELECT 1", Cause: errors.New("x")}, "EngineError"},
		{"external", errs.NewExternalError("gcs", errors.New("timeout")), "ExternalError"},
		{"plain", errors.New("unclassified"), "Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errs.ClassName(tc.err))
		})
	}
}

func TestAtomicLoadErrorMessageSuggestsDiagnostic(t *testing.T) {
	err := &errs.AtomicLoadError{
		Message:       "row count mismatch",
		SourceRows:    100,
		LoadedRows:    90,
		ParseStrategy: "whole_file",
	}
	assert.Contains(t, err.Error(), "inspect_raw_file")
	assert.Contains(t, err.Error(), "source_rows=100")
	assert.Contains(t, err.Error(), "loaded_rows=90")
}

func TestValidationErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := &errs.ValidationError{Message: "bad", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bad")
	assert.Contains(t, err.Error(), "underlying")
}

func TestEngineErrorIncludesAvailableColumns(t *testing.T) {
	err := &errs.EngineError{SQL: "SELECT missing_col", AvailableColumns: []string{"id", "name"}}
	assert.Contains(t, err.Error(), "available columns")
	assert.Contains(t, err.Error(), "id")
}

func TestNewDestructiveSQLErrorIsValidationError(t *testing.T) {
	err := errs.NewDestructiveSQLError("DROP TABLE orders")
	assert.Contains(t, err.Error(), "DROP TABLE orders")
	assert.Equal(t, "ValidationError", errs.ClassName(err))
}
