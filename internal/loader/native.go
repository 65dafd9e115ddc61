package loader

import (
	"context"
	"fmt"

	"github.com/datagruntio/cleanroom/internal/engine"
)

// LoadNative hands a Parquet or Excel file directly to the engine's
// native readers, per spec.md §4.H: no recovery path, column names
// normalized post-load.
func LoadNative(ctx context.Context, sess *engine.Session, format, path, tableName string) (Result, error) {
	var sql string
	switch format {
	case "PARQUET":
		sql = fmt.Sprintf(`CREATE TABLE "%s" AS SELECT * FROM read_parquet('%s')`, tableName, escapeLiteral(path))
	case "EXCEL":
		sql = fmt.Sprintf(`CREATE TABLE "%s" AS SELECT * FROM st_read('%s')`, tableName, escapeLiteral(path))
	default:
		sql = fmt.Sprintf(`CREATE TABLE "%s" AS SELECT * FROM read_parquet('%s')`, tableName, escapeLiteral(path))
	}

	if err := sess.ExecUnchecked(ctx, sql); err != nil {
		return Result{}, err
	}
	sess.RegisterTable(tableName, engine.TableInfo{SourcePath: path, SourceFormat: format})

	mapping, err := normalizeColumns(ctx, sess, tableName)
	if err != nil {
		return Result{}, err
	}

	loaded, err := sess.RowCount(ctx, tableName)
	if err != nil {
		return Result{}, err
	}

	sess.RegisterTable(tableName, engine.TableInfo{
		SourcePath:     path,
		SourceFormat:   format,
		RowCount:       loaded,
		SourceRowCount: loaded,
	})

	return Result{
		TableName:      tableName,
		SourceRowCount: loaded,
		LoadedRowCount: loaded,
		ParseStrategy:  "native",
		ColumnsRenamed: mapping,
	}, nil
}
