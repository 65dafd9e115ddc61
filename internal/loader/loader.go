// Package loader implements the CSV, JSON and native loaders of spec.md
// §4.F/§4.G/§4.H: get a source file registered as a table in the
// internal/engine analytic session, atomically or not at all. Grounded on
// the teacher's integrations/duckdb/duckdb.go statement-execution
// helpers and pkg/csv/infer_schema.go's multi-strategy sampling, adapted
// from Arrow-native ingestion into DuckDB SQL-driven ingestion (the
// original Python source's duckdb_session.py loads every format through
// SQL table functions rather than Arrow readers, and this module follows
// that lead since the embedded engine is DuckDB).
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/datagruntio/cleanroom/internal/colname"
	"github.com/datagruntio/cleanroom/internal/engine"
	"github.com/datagruntio/cleanroom/internal/errs"
)

// Result is what every loader path returns on success: the table is
// registered in the session and these counts are final.
type Result struct {
	TableName        string
	SourceRowCount   int64
	LoadedRowCount   int64
	EmptyRowsRemoved int64
	ParseStrategy    string
	ColumnsRenamed   map[string]string
}

// checkAtomicity enforces spec.md §3's invariant: loaded + empty-removed
// must equal source row count, or the load is discarded and failed.
func checkAtomicity(ctx context.Context, sess *engine.Session, tableName string, sourceRows, emptyRemoved int64, strategy string) error {
	loaded, err := sess.RowCount(ctx, tableName)
	if err != nil {
		return err
	}
	if loaded+emptyRemoved != sourceRows {
		_ = sess.ExecUnchecked(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, tableName))
		sess.UnregisterTable(tableName)
		return &errs.AtomicLoadError{
			Message:          "loaded row count does not reconcile with source",
			SourceRows:       sourceRows,
			LoadedRows:       loaded,
			EmptyRowsRemoved: emptyRemoved,
			ParseStrategy:    strategy,
		}
	}
	return nil
}

// normalizeColumns renames every column of tableName to its snake_case
// form via the engine's unchecked DDL path, per spec.md §4.C, returning
// the minimal rename mapping applied.
func normalizeColumns(ctx context.Context, sess *engine.Session, tableName string) (map[string]string, error) {
	names, err := sess.ColumnNames(ctx, tableName)
	if err != nil {
		return nil, err
	}
	mapping := colname.RenameMapping(names)
	for original, renamed := range mapping {
		sql := fmt.Sprintf(`ALTER TABLE "%s" RENAME COLUMN "%s" TO "%s"`, tableName, original, renamed)
		if err := sess.ExecUnchecked(ctx, sql); err != nil {
			return nil, err
		}
	}
	return mapping, nil
}

// dropAllNullRows removes rows where every column is NULL, per spec.md
// §4.F's "drop all-NULL rows" step. It returns the number of rows
// removed so callers can fold it into the atomicity check.
func dropAllNullRows(ctx context.Context, sess *engine.Session, tableName string) (int64, error) {
	names, err := sess.ColumnNames(ctx, tableName)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, nil
	}

	before, err := sess.RowCount(ctx, tableName)
	if err != nil {
		return 0, err
	}

	conds := make([]string, len(names))
	for i, n := range names {
		conds[i] = fmt.Sprintf(`"%s" IS NULL`, n)
	}
	allNullWhere := strings.Join(conds, " AND ")

	createSQL := fmt.Sprintf(
		`CREATE TABLE "%s__filtered" AS SELECT * FROM "%s" WHERE NOT (%s)`,
		tableName, tableName, allNullWhere,
	)
	if err := sess.ExecUnchecked(ctx, createSQL); err != nil {
		return 0, err
	}
	if err := sess.ExecUnchecked(ctx, fmt.Sprintf(`DROP TABLE "%s"`, tableName)); err != nil {
		return 0, err
	}
	if err := sess.ExecUnchecked(ctx, fmt.Sprintf(`ALTER TABLE "%s__filtered" RENAME TO "%s"`, tableName, tableName)); err != nil {
		return 0, err
	}

	after, err := sess.RowCount(ctx, tableName)
	if err != nil {
		return 0, err
	}
	return before - after, nil
}
