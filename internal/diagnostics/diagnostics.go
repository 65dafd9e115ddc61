// Package diagnostics implements inspect_raw_file, the tool
// errs.AtomicLoadError suggests on a failed atomic load: reread the
// source bytes outside the analytic engine and report exactly what the
// loader saw, for a human deciding whether a row-count mismatch or
// unrecoverable JSONL line is a genuine data problem or a parser bug.
// Grounded on the teacher's pkg/csv/infer_schema.go style of sampling a
// bounded file prefix and reporting delimiter/encoding/row-shape findings
// before committing to a parse strategy.
package diagnostics

import (
	"fmt"

	"github.com/datagruntio/cleanroom/internal/colname"
	"github.com/datagruntio/cleanroom/internal/delimiter"
	"github.com/datagruntio/cleanroom/internal/format"
	"github.com/datagruntio/cleanroom/internal/model"
	"github.com/datagruntio/cleanroom/internal/textrecovery"
)

// Report is the inspect_raw_file diagnostic's output: everything the
// pipeline would have derived about a file before attempting to load it.
type Report struct {
	Path              string       `json:"path"`
	DetectedFormat    model.Format `json:"detected_format"`
	SizeBytes         int64        `json:"size_bytes"`
	NativeLoadable    bool         `json:"native_loadable"`
	Binary            bool         `json:"binary"`
	DetectedEncoding  string       `json:"detected_encoding,omitempty"`
	LossyDecode       bool         `json:"lossy_decode"`
	Delimiter         string       `json:"delimiter,omitempty"`
	DataLineCount     int64        `json:"data_line_count,omitempty"`
	SampleLines       []string     `json:"sample_lines,omitempty"`
	NormalizedHeaders []string     `json:"normalized_headers,omitempty"`
	Notes             []string     `json:"notes,omitempty"`
}

// InspectRawFile runs the diagnostic against a local file path, never
// touching the analytic engine: it re-derives format, encoding, delimiter
// and header shape directly from the bytes on disk so a human can compare
// that against what the failed load actually recorded.
func InspectRawFile(path string) (Report, error) {
	classification, err := format.Detect(path)
	if err != nil {
		return Report{}, fmt.Errorf("diagnostics: failed to detect format: %w", err)
	}

	report := Report{
		Path:           path,
		DetectedFormat: classification.Format,
		SizeBytes:      classification.SizeBytes,
		NativeLoadable: classification.NativeLoadable,
		Binary:         classification.Binary,
	}

	if classification.Binary {
		report.Notes = append(report.Notes, "binary format: encoding/delimiter inspection skipped")
		return report, nil
	}

	recovered, err := textrecovery.Recover(path, classification.Binary)
	if err != nil {
		report.Notes = append(report.Notes, fmt.Sprintf("text recovery failed: %v", err))
		return report, nil
	}
	report.DetectedEncoding = recovered.Encoding
	report.LossyDecode = recovered.Lossy
	inspectPath := recovered.Path
	defer textrecovery.Cleanup(recovered, path)

	lines, err := delimiter.ReadFirstLines(inspectPath, 10)
	if err != nil {
		report.Notes = append(report.Notes, fmt.Sprintf("failed to read sample lines: %v", err))
		return report, nil
	}
	report.SampleLines = lines

	count, err := delimiter.CountDataLines(inspectPath)
	if err == nil {
		report.DataLineCount = count
	}

	switch classification.Format {
	case model.FormatCSV, model.FormatTSV:
		delim, err := delimiter.Infer(inspectPath)
		if err != nil {
			report.Notes = append(report.Notes, fmt.Sprintf("delimiter inference failed: %v", err))
			break
		}
		report.Delimiter = string(delim)
		if len(lines) > 0 {
			report.NormalizedHeaders = colname.Deduplicate(splitRow(lines[0], delim))
		}
	case model.FormatJSON, model.FormatJSONL:
		report.Notes = append(report.Notes, "JSON/JSONL: see sample_lines for the first records as written")
	}

	return report, nil
}

func splitRow(line string, delim rune) []string {
	var fields []string
	var cur []rune
	for _, r := range line {
		if r == delim {
			fields = append(fields, string(cur))
			cur = cur[:0]
			continue
		}
		cur = append(cur, r)
	}
	fields = append(fields, string(cur))
	for i, f := range fields {
		fields[i] = colname.Normalize(f)
	}
	return fields
}
