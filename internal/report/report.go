// Package report builds and persists the two JSON documents spec.md §4.K
// names: the quality report and the cleaning report. Grounded on the
// teacher's internal/json wrapper for marshaling and on
// integrations/gcs.go's write-to-a-named-path style for persistence, with
// IDs minted the way the teacher's pkg/common/utils helpers generate
// short random suffixes — here via google/uuid, trimmed to 12 hex chars.
package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/datagruntio/cleanroom/internal/jsonutil"
	"github.com/datagruntio/cleanroom/internal/model"
	"github.com/datagruntio/cleanroom/internal/objectstore"
)

// NewID mints a report ID of the documented shape: prefix_ + 12 hex chars,
// per spec.md §4.K.
func NewID(prefix string) string {
	full := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + full[:12]
}

// NowRFC3339 stamps generated_at/processed_at fields, converting t to UTC
// first. The orchestrator passes time.Now(); tests pass a fixed clock.
func NowRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// QualityReportInput bundles everything BuildQualityReport needs beyond
// what the scan itself produced.
type QualityReportInput struct {
	Source        model.SourceInfo
	Ingestion     model.IngestionSummary
	Schema        []model.ColumnSchema
	Findings      []model.Finding
	ProcessedAt   time.Time
	ParquetExport model.ParquetExportInfo
	ScanStatus    string
}

// BuildQualityReport assembles the quality report document, deriving
// overall_status from the findings' severity counts per spec.md §4.K.
func BuildQualityReport(in QualityReportInput) model.QualityReport {
	counts := model.CountSeverities(in.Findings)
	status := counts.OverallStatus()

	rpt := model.QualityReport{
		ReportID:      NewID("dqr"),
		SchemaVersion: model.SchemaVersion,
		GeneratedAt:   NowRFC3339(in.ProcessedAt),
		Source:        in.Source,
		Ingestion:     in.Ingestion,
		Schema:        in.Schema,
		Quality: model.QualityBlock{
			Findings:       in.Findings,
			SeverityCounts: counts,
		},
		OverallStatus: status,
	}
	rpt.Pipeline.ProcessedAt = NowRFC3339(in.ProcessedAt)
	rpt.Pipeline.ParquetExport = in.ParquetExport
	rpt.Pipeline.QualityScan.Status = in.ScanStatus

	if status == "fail" {
		rpt.OverallStatusReason = fmt.Sprintf("%d critical finding(s)", counts.Critical)
	} else if status == "warn" {
		rpt.OverallStatusReason = fmt.Sprintf("%d warning finding(s)", counts.Warning)
	}
	return rpt
}

// CleaningReportInput bundles everything BuildCleaningReport needs.
type CleaningReportInput struct {
	Source              model.SourceInfo
	BeforeRows          int64
	AfterRows           int64
	BeforeColumns       int
	AfterColumns        int
	Operations          []model.Operation
	PIIFindings         []model.PIIFinding
	IdentifierColumns   []model.IdentifierColumn
	PrecisionFlags      []model.PrecisionFlag
	QualityFindingCount int
	GeneratedAt         time.Time
}

// BuildCleaningReport assembles the cleaning report document. overall_status
// is "no_action_needed" when Clean applied zero operations, "cleaned"
// otherwise, per spec.md §4.J's state machine note.
func BuildCleaningReport(in CleaningReportInput) model.CleaningReport {
	status := "cleaned"
	if len(in.Operations) == 0 {
		status = "no_action_needed"
	}

	columnsAdded, columnsRemoved := 0, 0
	if d := in.AfterColumns - in.BeforeColumns; d > 0 {
		columnsAdded = d
	} else if d < 0 {
		columnsRemoved = -d
	}

	return model.CleaningReport{
		ReportID:      NewID("dcr"),
		SchemaVersion: model.SchemaVersion,
		GeneratedAt:   NowRFC3339(in.GeneratedAt),
		Source:        in.Source,
		Summary: model.CleaningSummary{
			BeforeRows:        in.BeforeRows,
			AfterRows:         in.AfterRows,
			BeforeColumns:     in.BeforeColumns,
			AfterColumns:      in.AfterColumns,
			ColumnsAdded:      columnsAdded,
			ColumnsRemoved:    columnsRemoved,
			OperationsApplied: len(in.Operations),
		},
		Operations:            in.Operations,
		PIIDetection:          in.PIIFindings,
		IdentifierColumns:     in.IdentifierColumns,
		NumericPrecisionFlags: in.PrecisionFlags,
		QualityFindingsInput:  in.QualityFindingCount,
		OverallStatus:         status,
	}
}

// Persist writes a report to the staging bucket at
// <workDir>/<stem>_quality.json or <stem>_cleaning.json, keyed by the
// source file's stem, per spec.md §4.K's "working directory keyed by the
// source stem".
func Persist(ctx context.Context, store *objectstore.Store, workDir, stem, suffix string, report any) (string, error) {
	data, err := jsonutil.MarshalIndent(report)
	if err != nil {
		return "", fmt.Errorf("report: failed to marshal: %w", err)
	}
	path := filepath.ToSlash(filepath.Join(workDir, fmt.Sprintf("%s_%s.json", stem, suffix)))
	if err := store.Write(ctx, objectstore.RoleStaging, path, data); err != nil {
		return "", fmt.Errorf("report: failed to persist %s: %w", path, err)
	}
	return path, nil
}
