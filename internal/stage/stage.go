// Package stage defines the five typed stage interfaces spec.md's
// REDESIGN FLAGS section calls for in place of the original source's
// dynamic, LLM-dispatched tool registry: Loader, Scanner, Cleaner,
// Exporter, LakehouseWriter. The orchestrator wires one concrete
// implementation per interface; tests wire fakes. Grounded on the
// teacher's internal/interfaces package, which abstracts Source/Sink/
// Reader/Writer the same way — small, single-purpose contracts rather
// than one god-interface.
package stage

import (
	"context"
	"fmt"

	"github.com/datagruntio/cleanroom/internal/cleaning"
	"github.com/datagruntio/cleanroom/internal/collab"
	"github.com/datagruntio/cleanroom/internal/engine"
	"github.com/datagruntio/cleanroom/internal/export"
	"github.com/datagruntio/cleanroom/internal/lakehouse"
	"github.com/datagruntio/cleanroom/internal/loader"
	"github.com/datagruntio/cleanroom/internal/model"
	"github.com/datagruntio/cleanroom/internal/quality"
)

// Loader loads a classified source file into a table, per spec.md §4.F/G/H.
// The concrete FormatLoader dispatches on classification.Format.
type Loader interface {
	Load(ctx context.Context, sess *engine.Session, classification model.Classification, headerDetector collab.HeaderDetector, path, tableName string) (loader.Result, error)
}

// Scanner runs the quality audit of spec.md §4.I.
type Scanner interface {
	Scan(ctx context.Context, sess *engine.Session, tableName string) ([]model.Finding, error)
}

// Cleaner runs the twelve-step protocol of spec.md §4.J.
type Cleaner interface {
	Clean(ctx context.Context, sess *engine.Session, piiDetector collab.PIIDetector, tableName string, findings []model.Finding) (cleaning.Outcome, error)
}

// Exporter writes the cleaned table to canonical Parquet, per spec.md §4.L.
type Exporter interface {
	Export(ctx context.Context, sess *engine.Session, tableName, outputDir, stem string) (export.Result, error)
}

// LakehouseWriter merges a canonical Parquet file into the lakehouse, per
// spec.md §4.M.
type LakehouseWriter interface {
	Load(ctx context.Context, req model.LoadRequest) (lakehouse.LoadResult, error)
}

// FormatLoader is the default Loader: dispatches to the CSV, JSON, or
// native (Parquet/Excel) loader by the file's detected format.
type FormatLoader struct{}

func (FormatLoader) Load(ctx context.Context, sess *engine.Session, c model.Classification, headerDetector collab.HeaderDetector, path, tableName string) (loader.Result, error) {
	switch c.Format {
	case model.FormatCSV, model.FormatTSV:
		return loader.LoadCSV(ctx, sess, headerDetector, path, tableName)
	case model.FormatJSON, model.FormatJSONL:
		return loader.LoadJSON(ctx, sess, path, tableName)
	case model.FormatParquet, model.FormatExcel:
		return loader.LoadNative(ctx, sess, string(c.Format), path, tableName)
	default:
		return loader.Result{}, fmt.Errorf("stage: unknown format %q", c.Format)
	}
}

// QualityScanner adapts internal/quality.Scan to the Scanner interface.
type QualityScanner struct{}

func (QualityScanner) Scan(ctx context.Context, sess *engine.Session, tableName string) ([]model.Finding, error) {
	return quality.Scan(ctx, sess, tableName)
}

// CleaningEngine adapts internal/cleaning.Clean to the Cleaner interface.
type CleaningEngine struct{}

func (CleaningEngine) Clean(ctx context.Context, sess *engine.Session, detector collab.PIIDetector, tableName string, findings []model.Finding) (cleaning.Outcome, error) {
	return cleaning.Clean(ctx, sess, detector, tableName, findings)
}

// ParquetExporter adapts internal/export.Export to the Exporter interface.
type ParquetExporter struct{}

func (ParquetExporter) Export(ctx context.Context, sess *engine.Session, tableName, outputDir, stem string) (export.Result, error) {
	return export.Export(ctx, sess, tableName, outputDir, stem)
}

// BigQueryWriter adapts *lakehouse.Writer to the LakehouseWriter interface.
type BigQueryWriter struct {
	Writer *lakehouse.Writer
}

func (b BigQueryWriter) Load(ctx context.Context, req model.LoadRequest) (lakehouse.LoadResult, error) {
	return b.Writer.Load(ctx, req)
}
