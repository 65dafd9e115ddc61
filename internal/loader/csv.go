package loader

import (
	"context"
	"fmt"

	"github.com/datagruntio/cleanroom/internal/collab"
	"github.com/datagruntio/cleanroom/internal/delimiter"
	"github.com/datagruntio/cleanroom/internal/engine"
	"github.com/datagruntio/cleanroom/internal/errs"
)

// quoteEscapePair is one of the four (quote, escape) configurations tried
// by the CSV recovery path, per spec.md §4.F.
type quoteEscapePair struct {
	label  string
	quote  string
	escape string
	auto   bool
}

var recoveryConfigs = []quoteEscapePair{
	{label: `(")(")`, quote: `"`, escape: `"`},
	{label: `(")(\)`, quote: `"`, escape: `\`},
	{label: `(')(')`, quote: `'`, escape: `'`},
	{label: "auto-detect-lenient", auto: true},
}

// LoadCSV runs the CSV Loader's fast path, falling back to the recovery
// path on failure, per spec.md §4.F.
func LoadCSV(ctx context.Context, sess *engine.Session, headerDetector collab.HeaderDetector, path, tableName string) (Result, error) {
	sourceRows, err := delimiter.CountDataLines(path)
	if err != nil {
		return Result{}, err
	}

	if res, err := loadCSVFastPath(ctx, sess, path, tableName, sourceRows); err == nil {
		return res, nil
	}

	return loadCSVRecoveryPath(ctx, sess, headerDetector, path, tableName, sourceRows)
}

// loadCSVFastPath invokes the engine's auto-detect CSV reader, per
// spec.md §4.F's fast path.
func loadCSVFastPath(ctx context.Context, sess *engine.Session, path, tableName string, sourceRows int64) (Result, error) {
	sql := fmt.Sprintf(
		`CREATE TABLE "%s" AS SELECT * FROM read_csv_auto('%s', quote='"', header=true)`,
		tableName, escapeLiteral(path),
	)
	if err := sess.ExecUnchecked(ctx, sql); err != nil {
		return Result{}, err
	}
	sess.RegisterTable(tableName, engine.TableInfo{SourcePath: path, SourceFormat: "CSV", SourceRowCount: sourceRows})

	emptyRemoved, err := dropAllNullRows(ctx, sess, tableName)
	if err != nil {
		return Result{}, err
	}

	mapping, err := normalizeColumns(ctx, sess, tableName)
	if err != nil {
		return Result{}, err
	}

	if err := checkAtomicity(ctx, sess, tableName, sourceRows, emptyRemoved, "fast_path"); err != nil {
		return Result{}, err
	}

	if _, _, err := DetectAndRepairOverflow(ctx, sess, tableName); err != nil {
		return Result{}, err
	}

	loaded, err := sess.RowCount(ctx, tableName)
	if err != nil {
		return Result{}, err
	}
	return Result{
		TableName:        tableName,
		SourceRowCount:   sourceRows,
		LoadedRowCount:   loaded,
		EmptyRowsRemoved: emptyRemoved,
		ParseStrategy:    "fast_path",
		ColumnsRenamed:   mapping,
	}, nil
}

// loadCSVRecoveryPath tries the four (quote, escape) configurations of
// spec.md §4.F, keeping the one with fewest overflow columns.
func loadCSVRecoveryPath(ctx context.Context, sess *engine.Session, headerDetector collab.HeaderDetector, path, tableName string, sourceRows int64) (Result, error) {
	hasHeader, err := detectHeader(ctx, headerDetector, path)
	if err != nil {
		hasHeader = true // fail-open default per spec.md §9
	}

	var bestTable string
	bestOverflow := -1
	bestStrategy := ""

	for i, cfg := range recoveryConfigs {
		candidate := fmt.Sprintf("%s__cand%d", tableName, i)
		_ = sess.ExecUnchecked(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, candidate))

		sql := buildRecoverySQL(candidate, path, cfg, hasHeader)
		if err := sess.ExecUnchecked(ctx, sql); err != nil {
			continue
		}
		sess.RegisterTable(candidate, engine.TableInfo{SourcePath: path, SourceFormat: "CSV", SourceRowCount: sourceRows})

		overflowCount, _, err := DetectAndRepairOverflow(ctx, sess, candidate)
		if err != nil {
			sess.UnregisterTable(candidate)
			continue
		}

		if bestOverflow == -1 || overflowCount < bestOverflow {
			if bestTable != "" {
				_ = sess.ExecUnchecked(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, bestTable))
				sess.UnregisterTable(bestTable)
			}
			bestTable = candidate
			bestOverflow = overflowCount
			bestStrategy = cfg.label
		} else {
			_ = sess.ExecUnchecked(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, candidate))
			sess.UnregisterTable(candidate)
		}

		if overflowCount == 0 {
			break
		}
	}

	if bestTable == "" {
		return Result{}, errs.NewFormatError("CSV recovery path: all (quote, escape) configurations failed for %s", path)
	}

	if err := sess.ExecUnchecked(ctx, fmt.Sprintf(`ALTER TABLE "%s" RENAME TO "%s"`, bestTable, tableName)); err != nil {
		return Result{}, err
	}
	sess.UnregisterTable(bestTable)
	sess.RegisterTable(tableName, engine.TableInfo{SourcePath: path, SourceFormat: "CSV", SourceRowCount: sourceRows})

	emptyRemoved, err := dropAllNullRows(ctx, sess, tableName)
	if err != nil {
		return Result{}, err
	}

	mapping, err := normalizeColumns(ctx, sess, tableName)
	if err != nil {
		return Result{}, err
	}

	if err := applySafeTypeCoercion(ctx, sess, tableName); err != nil {
		return Result{}, err
	}

	if _, _, err := DetectAndRepairOverflow(ctx, sess, tableName); err != nil {
		return Result{}, err
	}

	if err := checkAtomicity(ctx, sess, tableName, sourceRows, emptyRemoved, bestStrategy); err != nil {
		return Result{}, err
	}

	loaded, err := sess.RowCount(ctx, tableName)
	if err != nil {
		return Result{}, err
	}
	return Result{
		TableName:        tableName,
		SourceRowCount:   sourceRows,
		LoadedRowCount:   loaded,
		EmptyRowsRemoved: emptyRemoved,
		ParseStrategy:    bestStrategy,
		ColumnsRenamed:   mapping,
	}, nil
}

func buildRecoverySQL(tableName, path string, cfg quoteEscapePair, hasHeader bool) string {
	if cfg.auto {
		return fmt.Sprintf(
			`CREATE TABLE "%s" AS SELECT * FROM read_csv('%s', header=%t, auto_detect=true, ignore_errors=true)`,
			tableName, escapeLiteral(path), hasHeader,
		)
	}
	return fmt.Sprintf(
		`CREATE TABLE "%s" AS SELECT * FROM read_csv('%s', header=%t, quote='%s', escape='%s', ignore_errors=true)`,
		tableName, escapeLiteral(path), hasHeader, cfg.quote, cfg.escape,
	)
}

func detectHeader(ctx context.Context, detector collab.HeaderDetector, path string) (bool, error) {
	sample, err := sampleRows(path, 5)
	if err != nil {
		return true, err
	}
	return detector.DetectHeader(ctx, sample)
}

func sampleRows(path string, n int) ([][]string, error) {
	lines, err := readFirstLinesForSampling(path, n)
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(lines))
	for i, l := range lines {
		out[i] = []string{l}
	}
	return out, nil
}

// readFirstLinesForSampling is a thin indirection over delimiter's raw-line
// reader so the header classifier can see the file's first few lines
// without the CSV loader importing a parsing library of its own.
func readFirstLinesForSampling(path string, n int) ([]string, error) {
	return delimiter.ReadFirstLines(path, n)
}

func escapeLiteral(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
		} else {
			out = append(out, s[i])
		}
	}
	return string(out)
}
