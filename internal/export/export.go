// Package export implements the Canonical Exporter of spec.md §4.L:
// writing a cleaned table back out as Parquet via the analytic engine's
// native COPY, the same way the teacher's integrations/duckdb package
// treats every DuckDB operation as a SQL statement issued over the ADBC
// connection rather than an Arrow-native writer.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/datagruntio/cleanroom/internal/engine"
)

// Result records the canonical export outcome, per spec.md §6's
// parquet_export block.
type Result struct {
	OutputPath string
	SizeBytes  int64
}

// Export writes tableName to <outputDir>/<stem>.parquet using DuckDB's
// native COPY ... (FORMAT PARQUET), then stats the file to record its
// size, per spec.md §4.L.
func Export(ctx context.Context, sess *engine.Session, tableName, outputDir, stem string) (Result, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("export: failed to create output dir %q: %w", outputDir, err)
	}

	outputPath := filepath.Join(outputDir, stem+".parquet")
	sql := fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, quoteIdent(tableName), escapeSQLLiteral(outputPath))
	if err := sess.ExecUnchecked(ctx, sql); err != nil {
		return Result{}, fmt.Errorf("export: failed to write %q: %w", outputPath, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return Result{}, fmt.Errorf("export: failed to stat %q: %w", outputPath, err)
	}

	return Result{OutputPath: outputPath, SizeBytes: info.Size()}, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeSQLLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
