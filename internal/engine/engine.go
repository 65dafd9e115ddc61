// Package engine owns the embedded analytic session of spec.md §4.D: one
// DuckDB connection opened over Arrow ADBC, a registry mapping table name
// to its load provenance, and the safe/unchecked SQL execution split. It
// is grounded on the teacher's integrations/duckdb/duckdb.go, generalized
// from a pair of free functions into a Session type that owns the
// connection and the table registry spec.md §3 describes, instead of
// leaving connection lifetime to the caller.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-adbc/go/adbc/drivermgr"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"

	"github.com/datagruntio/cleanroom/internal/errs"
)

// TableInfo is the registry entry spec.md §3 describes: table_name ->
// {source_path, source_format, row_count, column_count, source_row_count}.
type TableInfo struct {
	SourcePath     string
	SourceFormat   string
	RowCount       int64
	ColumnCount    int
	SourceRowCount int64
}

// Session is a process-local embedded analytic engine: one connection,
// one table registry. Lifetime is one session per pipeline invocation,
// per spec.md §3.
type Session struct {
	mu     sync.Mutex
	db     adbc.Database
	conn   adbc.Connection
	tables map[string]TableInfo
}

// destructivePattern matches the statement kinds safe execution refuses,
// tested against the leading keywords of the (case-folded, whitespace-
// trimmed) SQL text, per spec.md §4.D.
var destructivePattern = regexp.MustCompile(`(?i)^\s*(DELETE\b|DROP\s+TABLE\b|TRUNCATE\b|DROP\s+DATABASE\b)`)

// Open starts a new embedded DuckDB session over Arrow ADBC, loading the
// "arrow" extension by default the way OpenDuckDBConnection does.
func Open(ctx context.Context, dbPath string) (*Session, error) {
	drv := drivermgr.Driver{}
	dbConfig := map[string]string{
		"driver":     "duckdb",
		"entrypoint": "duckdb_adbc_init",
		"path":       dbPath,
	}

	db, err := drv.NewDatabase(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to open database: %w", err)
	}

	conn, err := db.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to open connection: %w", err)
	}

	s := &Session{db: db, conn: conn, tables: make(map[string]TableInfo)}
	if err := s.loadExtension(ctx, "arrow"); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) loadExtension(ctx context.Context, name string) error {
	if err := s.ExecUnchecked(ctx, fmt.Sprintf("INSTALL %s;", name)); err != nil {
		return fmt.Errorf("engine: failed to install extension %q: %w", name, err)
	}
	if err := s.ExecUnchecked(ctx, fmt.Sprintf("LOAD %s;", name)); err != nil {
		return fmt.Errorf("engine: failed to load extension %q: %w", name, err)
	}
	return nil
}

// ExecUnchecked runs arbitrary internal DDL (ADD/DROP COLUMN, extension
// install, registry maintenance) with no destructive-statement filtering,
// per spec.md §4.D's "unchecked" path.
func (s *Session) ExecUnchecked(ctx context.Context, sql string) error {
	stmt, err := s.conn.NewStatement()
	if err != nil {
		return &errs.EngineError{SQL: sql, Cause: err}
	}
	defer stmt.Close()

	if err := stmt.SetSqlQuery(sql); err != nil {
		return &errs.EngineError{SQL: sql, Cause: err}
	}
	if _, err := stmt.ExecuteUpdate(ctx); err != nil {
		return &errs.EngineError{SQL: sql, Cause: err}
	}
	return nil
}

// ExecSafe runs SQL driven by external input, rejecting destructive
// statements per spec.md §4.D before it ever reaches the connection.
func (s *Session) ExecSafe(ctx context.Context, sql string) error {
	if destructivePattern.MatchString(sql) {
		return errs.NewDestructiveSQLError(sql)
	}
	return s.ExecUnchecked(ctx, sql)
}

// Query runs a SQL query driven by external input through the safe path
// and returns a RecordReader over the result.
func (s *Session) Query(ctx context.Context, sql string) (array.RecordReader, error) {
	if destructivePattern.MatchString(sql) {
		return nil, errs.NewDestructiveSQLError(sql)
	}
	stmt, err := s.conn.NewStatement()
	if err != nil {
		return nil, &errs.EngineError{SQL: sql, Cause: err}
	}
	defer stmt.Close()

	if err := stmt.SetSqlQuery(sql); err != nil {
		return nil, &errs.EngineError{SQL: sql, Cause: err}
	}
	reader, _, err := stmt.ExecuteQuery(ctx)
	if err != nil {
		return nil, &errs.EngineError{SQL: sql, Cause: err}
	}
	return reader, nil
}

// RegisterTable records a load's provenance in the session's table
// registry, per spec.md §3.
func (s *Session) RegisterTable(tableName string, info TableInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[tableName] = info
}

// UnregisterTable drops a table's registry entry.
func (s *Session) UnregisterTable(tableName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, tableName)
}

// TableInfo returns the registry entry for tableName, if any.
func (s *Session) TableInfo(tableName string) (TableInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.tables[tableName]
	return info, ok
}

// RowCount returns a table's current row count via COUNT(*).
func (s *Session) RowCount(ctx context.Context, tableName string) (int64, error) {
	reader, err := s.Query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(tableName)))
	if err != nil {
		return 0, err
	}
	defer reader.Release()

	if !reader.Next() {
		return 0, &errs.EngineError{SQL: "SELECT COUNT(*)", Cause: fmt.Errorf("no rows returned")}
	}
	rec := reader.Record()
	col := rec.Column(0)
	return columnAsInt64(col, 0), nil
}

// ColumnNames returns a table's columns in schema order.
func (s *Session) ColumnNames(ctx context.Context, tableName string) ([]string, error) {
	schema, err := s.schemaOf(ctx, tableName)
	if err != nil {
		return nil, err
	}
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}
	return names, nil
}

// ColumnTypes returns a table's column name -> Arrow type-name map.
func (s *Session) ColumnTypes(ctx context.Context, tableName string) (map[string]string, error) {
	schema, err := s.schemaOf(ctx, tableName)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, schema.NumFields())
	for _, f := range schema.Fields() {
		out[f.Name] = f.Type.Name()
	}
	return out, nil
}

func (s *Session) schemaOf(ctx context.Context, tableName string) (*arrow.Schema, error) {
	reader, err := s.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", quoteIdent(tableName)))
	if err != nil {
		return nil, err
	}
	defer reader.Release()
	return reader.Schema(), nil
}

// ValidateColumns checks that every name in cols exists in tableName,
// returning a structured refusal listing the available columns per
// spec.md §4.D when one does not.
func (s *Session) ValidateColumns(ctx context.Context, tableName string, cols []string) error {
	available, err := s.ColumnNames(ctx, tableName)
	if err != nil {
		return err
	}
	set := make(map[string]struct{}, len(available))
	for _, a := range available {
		set[a] = struct{}{}
	}
	for _, c := range cols {
		if _, ok := set[c]; !ok {
			return &errs.EngineError{
				SQL:              fmt.Sprintf("column %q", c),
				AvailableColumns: available,
				Cause:            fmt.Errorf("unknown column %q", c),
			}
		}
	}
	return nil
}

// MarkdownSnapshot renders up to 10 columns and 10 rows of tableName as a
// markdown table, cells truncated to 40 characters, per spec.md §4.D.
func (s *Session) MarkdownSnapshot(ctx context.Context, tableName string) (string, error) {
	names, err := s.ColumnNames(ctx, tableName)
	if err != nil {
		return "", err
	}
	if len(names) > 10 {
		names = names[:10]
	}

	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = quoteIdent(n)
	}
	reader, err := s.Query(ctx, fmt.Sprintf("SELECT %s FROM %s LIMIT 10", strings.Join(cols, ", "), quoteIdent(tableName)))
	if err != nil {
		return "", err
	}
	defer reader.Release()

	var b strings.Builder
	b.WriteString("| ")
	b.WriteString(strings.Join(names, " | "))
	b.WriteString(" |\n|")
	b.WriteString(strings.Repeat(" --- |", len(names)))
	b.WriteString("\n")

	for reader.Next() {
		rec := reader.Record()
		for row := 0; row < int(rec.NumRows()); row++ {
			b.WriteString("| ")
			for c := 0; c < int(rec.NumCols()); c++ {
				cell := truncate(cellString(rec.Column(c), row), 40)
				b.WriteString(cell)
				b.WriteString(" | ")
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// Close tears the session down, per spec.md §3's "torn down at pipeline end".
func (s *Session) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("engine: failed to close connection: %w", err)
	}
	if closer, ok := s.db.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func cellString(col arrow.Array, row int) string {
	if col.IsNull(row) {
		return ""
	}
	return fmt.Sprintf("%v", col.GetOneForMarshal(row))
}

func columnAsInt64(col arrow.Array, row int) int64 {
	if v, ok := col.GetOneForMarshal(row).(int64); ok {
		return v
	}
	return 0
}
