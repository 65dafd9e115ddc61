// Package jsonutil wraps goccy/go-json the same way the teacher's
// internal/json package wraps it: thin helpers over Marshal/Unmarshal that
// add repo-specific error context, plus the structural-validation and
// pretty-print helpers the report writers and the JSON Loader's repair
// path need.
package jsonutil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

type (
	Decoder    = json.Decoder
	Encoder    = json.Encoder
	RawMessage = json.RawMessage
)

// Marshal safely marshals the provided value to JSON.
func Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonutil: failed to marshal: %w", err)
	}
	return data, nil
}

// MarshalIndent marshals with two-space indentation, used for the report
// files written to staging (spec.md §6's quality/cleaning report JSON).
func MarshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("jsonutil: failed to marshal indented: %w", err)
	}
	return data, nil
}

// Unmarshal safely unmarshals the provided JSON data into the provided value.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("jsonutil: cannot unmarshal empty data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("jsonutil: failed to unmarshal: %w", err)
	}
	return nil
}

// NewDecoder initializes and returns a new streaming JSON decoder. The JSON
// Loader does not use it; it reads files through the engine's read_json_auto.
func NewDecoder(r io.Reader) *Decoder {
	return json.NewDecoder(r)
}

// NewEncoder initializes and returns a new streaming JSON encoder.
func NewEncoder(w io.Writer) *Encoder {
	return json.NewEncoder(w)
}

// PrettyPrint marshals the provided value into a pretty-printed JSON string.
func PrettyPrint(v any) (string, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("jsonutil: failed to pretty print: %w", err)
	}
	return buf.String(), nil
}

// IsStructurallyValid reports whether data parses as JSON at all, without
// allocating into a destination type. The JSON Loader uses this to decide
// between whole-file parse, JSONL line-by-line parse, and the repair path
// (spec.md §4.G).
func IsStructurallyValid(data []byte) bool {
	return gjson.ValidBytes(data)
}

// TopLevelKind reports gjson's type classification of the first value in
// data ("array", "object", "other"), distinguishing a single JSON document
// from a JSON array of records. The JSON Loader does not call it; it
// classifies input with its own ClassifyJSON.
func TopLevelKind(data []byte) string {
	result := gjson.ParseBytes(data)
	switch {
	case result.IsArray():
		return "array"
	case result.IsObject():
		return "object"
	default:
		return "other"
	}
}

// LineIsValidJSON checks one JSONL line in isolation, used by the repair
// path to count recoverable vs. unrecoverable lines.
func LineIsValidJSON(line []byte) bool {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return true // blank lines are dropped, not flagged, by the caller
	}
	return gjson.ValidBytes(trimmed)
}
