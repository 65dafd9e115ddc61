// Package model holds the plain data types shared across pipeline stages:
// file classification, findings, cleaning operations, reports and the
// external event payloads.
package model

// Format is the tag a file is classified into by the format detector.
type Format string

const (
	FormatCSV     Format = "CSV"
	FormatTSV     Format = "TSV"
	FormatJSON    Format = "JSON"
	FormatJSONL   Format = "JSONL"
	FormatParquet Format = "PARQUET"
	FormatExcel   Format = "EXCEL"
	FormatUnknown Format = "UNKNOWN"
)

// Classification describes a file's detected format and the two flags
// every downstream stage needs: whether the analytic engine can read it
// natively, and whether it is binary (so text recovery must skip it).
type Classification struct {
	Format         Format
	NativeLoadable bool
	Binary         bool
	SizeBytes      int64
}

// nativeLoadable reports whether the analytic engine has a built-in
// reader for the given format, per spec.md §4.A/§4.H.
func nativeLoadable(f Format) bool {
	switch f {
	case FormatCSV, FormatTSV, FormatJSON, FormatJSONL, FormatParquet, FormatExcel:
		return true
	default:
		return false
	}
}

func binaryFormat(f Format) bool {
	switch f {
	case FormatParquet, FormatExcel:
		return true
	default:
		return false
	}
}

// NewClassification builds a Classification for the given format, deriving
// the native-loadable and binary flags.
func NewClassification(f Format, size int64) Classification {
	return Classification{
		Format:         f,
		NativeLoadable: nativeLoadable(f),
		Binary:         binaryFormat(f),
		SizeBytes:      size,
	}
}
