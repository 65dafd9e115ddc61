// Package format implements the Format Detector of spec.md §4.A: classify
// a file by extension, fall back to magic bytes, and report size plus
// native-loadability. Grounded on the teacher's pkg/csv/infer_schema.go,
// which opens a file and inspects its leading bytes before committing to
// a parse strategy — generalized here from "is this CSV" to a full
// extension+magic-byte classifier feeding internal/model.Classification.
package format

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/datagruntio/cleanroom/internal/model"
)

var extensionMap = map[string]model.Format{
	".csv":     model.FormatCSV,
	".tsv":     model.FormatTSV,
	".tab":     model.FormatTSV,
	".json":    model.FormatJSON,
	".jsonl":   model.FormatJSONL,
	".ndjson":  model.FormatJSONL,
	".parquet": model.FormatParquet,
	".pqt":     model.FormatParquet,
	".xlsx":    model.FormatExcel,
	".xls":     model.FormatExcel,
}

// magicPrefixes maps a leading byte signature to its format, checked in
// order when the extension is unrecognized.
var magicPrefixes = []struct {
	prefix []byte
	format model.Format
}{
	{[]byte("PAR1"), model.FormatParquet},
	{[]byte("PK\x03\x04"), model.FormatExcel}, // xlsx is a zip archive
}

// Detect classifies the file at path, per spec.md §4.A. It reads at most
// the first few bytes for magic-prefix matching; an I/O error yields
// UNKNOWN with the error surfaced, never a panic.
func Detect(path string) (model.Classification, error) {
	if path == "" {
		return model.NewClassification(model.FormatUnknown, 0), fmt.Errorf("format: empty path")
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		return model.NewClassification(model.FormatUnknown, 0), fmt.Errorf("format: failed to stat %s: %w", path, statErr)
	}

	if f, ok := extensionMap[strings.ToLower(filepath.Ext(path))]; ok {
		return model.NewClassification(f, info.Size()), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return model.NewClassification(model.FormatUnknown, info.Size()), fmt.Errorf("format: failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 8)
	n, _ := f.Read(head)
	head = head[:n]

	for _, m := range magicPrefixes {
		if bytes.HasPrefix(head, m.prefix) {
			return model.NewClassification(m.format, info.Size()), nil
		}
	}

	return model.NewClassification(model.FormatUnknown, info.Size()), nil
}
