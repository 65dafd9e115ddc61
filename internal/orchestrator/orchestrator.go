// Package orchestrator implements the Pipeline Orchestrator of spec.md
// §4.N: one file event in, one table fully loaded/scanned/cleaned/
// exported/archived out. Grounded on the teacher's pipeline/pipeline.go
// DataPipeline, generalized from its two-goroutine reader/writer fan-out
// over an Arrow record channel to a sequential stage pipeline over the
// analytic engine — spec.md §5 requires stages run sequentially within
// one invocation, so only the artifact-upload step fans out, via
// golang.org/x/sync/errgroup the way the teacher's own go.mod already
// depends on it.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-kit/log"
	"golang.org/x/sync/errgroup"

	"github.com/datagruntio/cleanroom/internal/collab"
	"github.com/datagruntio/cleanroom/internal/config"
	"github.com/datagruntio/cleanroom/internal/engine"
	"github.com/datagruntio/cleanroom/internal/errs"
	"github.com/datagruntio/cleanroom/internal/format"
	"github.com/datagruntio/cleanroom/internal/logging"
	"github.com/datagruntio/cleanroom/internal/model"
	"github.com/datagruntio/cleanroom/internal/objectstore"
	"github.com/datagruntio/cleanroom/internal/report"
	"github.com/datagruntio/cleanroom/internal/stage"
)

const processedAtColumn = "processed_at"

// Orchestrator wires the five stages over one analytic session per
// invocation, plus the external collaborators of spec.md §9.
type Orchestrator struct {
	Config          *config.Config
	Store           *objectstore.Store
	Bus             collab.MessageBus
	StateRegistry   collab.StateRegistry
	HeaderDetector  collab.HeaderDetector
	PIIDetector     collab.PIIDetector
	Loader          stage.Loader
	Scanner         stage.Scanner
	Cleaner         stage.Cleaner
	Exporter        stage.Exporter
	Logger          log.Logger
}

// targetName splits spec.md §6's "target table name is the first path
// segment, or the filename stem if only one segment" rule.
func targetName(objectName string) (tableName, stem, fileName string) {
	fileName = path.Base(objectName)
	stem = strings.TrimSuffix(fileName, path.Ext(fileName))
	segments := strings.Split(strings.Trim(objectName, "/"), "/")
	if len(segments) > 1 {
		tableName = segments[0]
	} else {
		tableName = stem
	}
	return
}

// skip reports whether an inbound event names a directory marker or a
// hidden file, per spec.md §6.
func skip(objectName string) bool {
	base := path.Base(objectName)
	return strings.HasSuffix(objectName, "/") || strings.HasPrefix(base, ".")
}

// fileHash is SHA-256 of gs://<bucket>/<name>, the stable identifier
// spec.md §6 specifies for the completion event.
func fileHash(bucket, name string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("gs://%s/%s", bucket, name)))
	return fmt.Sprintf("%x", sum)
}

// ProcessEvent runs the full pipeline for one inbound object-creation
// event, per spec.md §4.N. Local files are always cleaned up; on any
// stage failure a failure event is published before the error is
// returned so the caller (event-bus redelivery layer) can retry.
func (o *Orchestrator) ProcessEvent(ctx context.Context, evt model.ObjectEvent) error {
	if skip(evt.Name) {
		return nil
	}

	tableName, stem, fileName := targetName(evt.Name)
	hash := fileHash(evt.Bucket, evt.Name)
	logger := logging.WithFile(o.Logger, hash, tableName)

	status, err := o.StateRegistry.Get(ctx, hash)
	if err == nil && status == collab.StatusComplete {
		logging.Info(logger, "msg", "skipping already-completed file")
		return nil
	}
	_ = o.StateRegistry.Set(ctx, hash, collab.StatusProcessing)

	localPath, err := o.download(ctx, evt.Bucket, evt.Name)
	if err != nil {
		o.fail(ctx, logger, hash, errs.StagePipeline, err)
		return err
	}
	defer os.Remove(localPath)

	sess, err := engine.Open(ctx, ":memory:")
	if err != nil {
		o.fail(ctx, logger, hash, errs.StagePipeline, err)
		return err
	}
	defer sess.Close()

	outcome, err := o.run(ctx, logger, sess, localPath, tableName, stem, fileName, evt, hash)
	if err != nil {
		stageName := errs.StagePipeline
		var se *stagedError
		if ok := asStagedError(err, &se); ok {
			stageName = se.Stage
			err = se.Cause
		}
		o.fail(ctx, logger, hash, stageName, err)
		return err
	}

	_ = o.StateRegistry.Set(ctx, hash, collab.StatusComplete)
	logging.Info(logger, "msg", "pipeline complete", "rows", outcome.rows)
	return nil
}

type runOutcome struct {
	rows int64
}

// stagedError carries the originating stage name alongside the cause, so
// ProcessEvent's failure-event payload can name the failing stage per
// spec.md §7 without every helper threading it separately.
type stagedError struct {
	Stage errs.StageName
	Cause error
}

func (e *stagedError) Error() string { return e.Cause.Error() }
func (e *stagedError) Unwrap() error  { return e.Cause }

func asStagedError(err error, target **stagedError) bool {
	se, ok := err.(*stagedError)
	if ok {
		*target = se
	}
	return ok
}

func wrapStage(stageName errs.StageName, err error) error {
	if err == nil {
		return nil
	}
	return &stagedError{Stage: stageName, Cause: err}
}

// run executes load -> stamp -> export -> scan -> clean -> re-export ->
// upload -> publish -> archive, in the fixed sequence spec.md §4.N names.
func (o *Orchestrator) run(ctx context.Context, logger log.Logger, sess *engine.Session, localPath, tableName, stem, fileName string, evt model.ObjectEvent, hash string) (runOutcome, error) {
	classification, err := format.Detect(localPath)
	if err != nil {
		return runOutcome{}, wrapStage(errs.StageLoad, err)
	}
	if classification.Format == model.FormatUnknown {
		return runOutcome{}, wrapStage(errs.StageLoad, errs.NewFormatError("unrecognized format for %s", fileName))
	}

	loadResult, err := o.Loader.Load(ctx, sess, classification, o.HeaderDetector, localPath, tableName)
	if err != nil {
		return runOutcome{}, wrapStage(errs.StageLoad, err)
	}
	sess.RegisterTable(tableName, engine.TableInfo{
		SourcePath:     evt.Name,
		SourceFormat:   string(classification.Format),
		RowCount:       loadResult.LoadedRowCount,
		SourceRowCount: loadResult.SourceRowCount,
	})
	logging.Info(logger, "msg", "loaded", "rows", loadResult.LoadedRowCount, "strategy", loadResult.ParseStrategy)

	if err := o.stampProcessedAt(ctx, sess, tableName); err != nil {
		return runOutcome{}, wrapStage(errs.StageLoad, err)
	}

	outputDir := o.Config.OutputDirectory
	if outputDir == "" {
		outputDir = o.Config.WorkingDirectory
	}
	if _, err := o.Exporter.Export(ctx, sess, tableName, outputDir, stem); err != nil {
		return runOutcome{}, wrapStage(errs.StageExport, err)
	}

	findings, err := o.Scanner.Scan(ctx, sess, tableName)
	if err != nil {
		return runOutcome{}, wrapStage(errs.StageScan, err)
	}

	beforeRows, _ := sess.RowCount(ctx, tableName)
	beforeCols, _ := sess.ColumnNames(ctx, tableName)

	cleanOutcome, err := o.Cleaner.Clean(ctx, sess, o.PIIDetector, tableName, findings)
	if err != nil {
		return runOutcome{}, wrapStage(errs.StageClean, err)
	}

	afterRows, _ := sess.RowCount(ctx, tableName)
	afterCols, _ := sess.ColumnNames(ctx, tableName)

	exportResult, err := o.Exporter.Export(ctx, sess, tableName, outputDir, stem)
	if err != nil {
		return runOutcome{}, wrapStage(errs.StageExport, err)
	}

	qualityReport := report.BuildQualityReport(report.QualityReportInput{
		Source: model.SourceInfo{
			FilePath:       evt.Name,
			FileName:       fileName,
			TableName:      tableName,
			DetectedFormat: string(classification.Format),
			SizeBytes:      evt.Size,
		},
		Ingestion: model.IngestionSummary{
			Status:           "success",
			TableName:        tableName,
			SourceRowCount:   loadResult.SourceRowCount,
			LoadedRowCount:   loadResult.LoadedRowCount,
			EmptyRowsRemoved: loadResult.EmptyRowsRemoved,
			RowsLost:         loadResult.SourceRowCount - loadResult.LoadedRowCount - loadResult.EmptyRowsRemoved,
			ParseStrategy:    loadResult.ParseStrategy,
			ColumnsRenamed:   loadResult.ColumnsRenamed,
		},
		Findings:      findings,
		ProcessedAt:   o.now(),
		ParquetExport: model.ParquetExportInfo{Status: "success", OutputPath: exportResult.OutputPath, SizeBytes: exportResult.SizeBytes},
		ScanStatus:    "success",
	})

	cleaningReport := report.BuildCleaningReport(report.CleaningReportInput{
		Source: model.SourceInfo{FilePath: evt.Name, FileName: fileName, TableName: tableName},
		BeforeRows:          beforeRows,
		AfterRows:           afterRows,
		BeforeColumns:       len(beforeCols),
		AfterColumns:        len(afterCols),
		Operations:          cleanOutcome.Operations,
		PIIFindings:         cleanOutcome.PIIFindings,
		IdentifierColumns:   cleanOutcome.IdentifierColumns,
		PrecisionFlags:      cleanOutcome.PrecisionFlags,
		QualityFindingCount: len(findings),
		GeneratedAt:         o.now(),
	})

	if err := o.uploadArtifacts(ctx, tableName, stem, exportResult.OutputPath, qualityReport, cleaningReport); err != nil {
		return runOutcome{}, wrapStage(errs.StageExport, err)
	}

	parquetURI := fmt.Sprintf("gs://%s/parquet/%s/%s.parquet", o.Config.Buckets.Staging, tableName, stem)
	loadReq := model.NewLoadRequest(hash, parquetURI, tableName, tableName, fmt.Sprintf("gs://%s/%s", evt.Bucket, evt.Name), afterRows)
	if err := o.Bus.PublishLoadRequest(ctx, loadReq); err != nil {
		return runOutcome{}, wrapStage(errs.StageLakehouse, errs.NewExternalError("message_bus", err))
	}

	if err := o.Bus.PublishCompletion(ctx, model.CompletionEvent{
		Type:     model.EventAgentCleaningComplete,
		FileHash: hash,
		Fields: map[string]any{
			"table_name":         tableName,
			"rows":               afterRows,
			"overall_status":     qualityReport.OverallStatus,
			"operations_applied": len(cleanOutcome.Operations),
		},
	}); err != nil {
		logging.Warn(logger, "msg", "completion event publish failed", "err", err)
	}

	if err := o.Store.Move(ctx, objectstore.RoleInbox, objectstore.RoleArchive, evt.Name); err != nil {
		return runOutcome{}, wrapStage(errs.StageArchive, errs.NewExternalError("object_store", err))
	}

	return runOutcome{rows: afterRows}, nil
}

// stampProcessedAt adds processed_at and fills every row with one
// engine-side current_timestamp value read back as the canonical
// timestamp, per spec.md §4.N.
func (o *Orchestrator) stampProcessedAt(ctx context.Context, sess *engine.Session, tableName string) error {
	if err := sess.ExecUnchecked(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s TIMESTAMP`, quoteIdent(tableName), processedAtColumn)); err != nil {
		return err
	}
	reader, err := sess.Query(ctx, "SELECT current_timestamp")
	if err != nil {
		return err
	}
	defer reader.Release()
	if !reader.Next() {
		return fmt.Errorf("orchestrator: current_timestamp returned no rows")
	}
	rec := reader.Record()
	ts := fmt.Sprintf("%v", rec.Column(0).GetOneForMarshal(0))
	sql := fmt.Sprintf(`UPDATE %s SET %s = TIMESTAMP '%s'`, quoteIdent(tableName), processedAtColumn, strings.ReplaceAll(ts, "'", "''"))
	return sess.ExecUnchecked(ctx, sql)
}

// uploadArtifacts writes the canonical Parquet and both reports to
// staging concurrently, per spec.md §6's staging path layout.
func (o *Orchestrator) uploadArtifacts(ctx context.Context, tableName, stem, parquetPath string, qualityReport model.QualityReport, cleaningReport model.CleaningReport) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := os.ReadFile(parquetPath)
		if err != nil {
			return fmt.Errorf("orchestrator: failed to read exported parquet: %w", err)
		}
		return o.Store.Write(gctx, objectstore.RoleStaging, fmt.Sprintf("parquet/%s/%s.parquet", tableName, stem), data)
	})
	g.Go(func() error {
		_, err := report.Persist(gctx, o.Store, fmt.Sprintf("reports/quality/%s", tableName), stem, "quality", qualityReport)
		return err
	})
	g.Go(func() error {
		_, err := report.Persist(gctx, o.Store, fmt.Sprintf("reports/cleaning/%s", tableName), stem, "cleaning", cleaningReport)
		return err
	})

	return g.Wait()
}

func (o *Orchestrator) fail(ctx context.Context, logger log.Logger, hash string, stageName errs.StageName, cause error) {
	_ = o.StateRegistry.Set(ctx, hash, collab.StatusFailed)
	logging.Error(logger, "msg", "pipeline stage failed", "stage", stageName, "err", cause)
	evtType := model.EventAgentCleaningFailed
	if stageName == errs.StageLakehouse {
		evtType = model.EventLoaderFailed
	}
	pubErr := o.Bus.PublishCompletion(ctx, model.CompletionEvent{
		Type:     evtType,
		FileHash: hash,
		Fields: map[string]any{
			"stage":       stageName,
			"error_class": errs.ClassName(cause),
			"error":       cause.Error(),
		},
	})
	if pubErr != nil {
		logging.Warn(logger, "msg", "failure event publish also failed", "err", pubErr)
	}
}

func (o *Orchestrator) download(ctx context.Context, bucket, name string) (string, error) {
	data, err := o.Store.Read(ctx, objectstore.RoleInbox, name)
	if err != nil {
		return "", errs.NewExternalError("object_store", err)
	}
	localPath := path.Join(o.Config.WorkingDirectory, path.Base(name))
	if err := os.MkdirAll(o.Config.WorkingDirectory, 0o755); err != nil {
		return "", fmt.Errorf("orchestrator: failed to create working dir: %w", err)
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("orchestrator: failed to write %q: %w", localPath, err)
	}
	return localPath, nil
}

func (o *Orchestrator) now() time.Time {
	return time.Now()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
