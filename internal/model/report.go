package model

// SchemaVersion is stamped on every emitted report, per spec.md §6.
const SchemaVersion = "1.0.0"

// ColumnSchema is one entry of a quality report's schema snapshot.
type ColumnSchema struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	NullRate float64 `json:"null_rate"`
	Distinct int64  `json:"distinct_estimate"`
}

// SourceInfo describes the ingested file, shared by both report kinds.
type SourceInfo struct {
	FilePath         string `json:"file_path"`
	FileName         string `json:"file_name"`
	TableName        string `json:"table_name,omitempty"`
	DetectedFormat   string `json:"detected_format,omitempty"`
	DetectedEncoding string `json:"detected_encoding,omitempty"`
	SizeBytes        int64  `json:"size_bytes,omitempty"`
}

// IngestionSummary captures how the file was loaded, per spec.md §6.
type IngestionSummary struct {
	Status                  string `json:"status"`
	TableName               string `json:"table_name"`
	SourceRowCount          int64  `json:"source_row_count"`
	LoadedRowCount          int64  `json:"loaded_row_count"`
	EmptyRowsRemoved        int64  `json:"empty_rows_removed"`
	RowsLost                int64  `json:"rows_lost"`
	Delimiter               string `json:"delimiter,omitempty"`
	ParseStrategy           string `json:"parse_strategy,omitempty"`
	IsHeaderDetected        *bool  `json:"is_header_detected,omitempty"`
	ColumnsRenamed          map[string]string `json:"columns_renamed,omitempty"`
	TypesCoerced            []string `json:"types_coerced,omitempty"`
	OverflowColumnsRepaired []string `json:"overflow_columns_repaired,omitempty"`
	OverflowRowsFlagged     int64    `json:"overflow_rows_flagged,omitempty"`
	JSONRepair              *bool    `json:"json_repair,omitempty"`
}

// ParquetExportInfo records the canonical export outcome.
type ParquetExportInfo struct {
	Status     string `json:"status"`
	OutputPath string `json:"output_path"`
	SizeBytes  int64  `json:"size_bytes"`
}

// PipelineInfo is the quality report's per-stage status block.
type PipelineInfo struct {
	ProcessedAt   string            `json:"processed_at"`
	ParquetExport ParquetExportInfo `json:"parquet_export"`
	QualityScan   struct {
		Status string `json:"status"`
	} `json:"quality_scan"`
}

// QualityBlock wraps the findings list and severity counts.
type QualityBlock struct {
	Findings       []Finding      `json:"findings"`
	SeverityCounts SeverityCounts `json:"severity_counts"`
}

// QualityReport is the top-level quality-audit document, per spec.md §6.
type QualityReport struct {
	ReportID            string         `json:"report_id"`
	SchemaVersion        string         `json:"schema_version"`
	GeneratedAt          string         `json:"generated_at"`
	Source               SourceInfo     `json:"source"`
	Ingestion            IngestionSummary `json:"ingestion"`
	Schema               []ColumnSchema `json:"schema"`
	Quality              QualityBlock   `json:"quality"`
	Pipeline              PipelineInfo   `json:"pipeline"`
	OverallStatus        string         `json:"overall_status"`
	OverallStatusReason  string         `json:"overall_status_reason,omitempty"`
}

// CleaningSummary is the before/after row and column-count summary.
type CleaningSummary struct {
	BeforeRows        int64 `json:"before_rows"`
	AfterRows         int64 `json:"after_rows"`
	BeforeColumns     int   `json:"before_columns"`
	AfterColumns      int   `json:"after_columns"`
	ColumnsAdded      int   `json:"columns_added"`
	ColumnsRemoved    int   `json:"columns_removed"`
	OperationsApplied int   `json:"operations_applied"`
}

// CleaningReport is the top-level cleaning-protocol document, per spec.md §6.
type CleaningReport struct {
	ReportID           string             `json:"report_id"`
	SchemaVersion       string             `json:"schema_version"`
	GeneratedAt         string             `json:"generated_at"`
	Source              SourceInfo         `json:"source"`
	Summary              CleaningSummary    `json:"summary"`
	Operations            []Operation        `json:"operations"`
	PIIDetection          []PIIFinding       `json:"pii_detection"`
	IdentifierColumns     []IdentifierColumn `json:"identifier_columns"`
	NumericPrecisionFlags []PrecisionFlag    `json:"numeric_precision_flags"`
	QualityFindingsInput  int                `json:"quality_findings_input"`
	OverallStatus         string             `json:"overall_status"`
}
