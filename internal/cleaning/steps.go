package cleaning

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/cespare/xxhash/v2"

	"github.com/datagruntio/cleanroom/internal/collab"
	"github.com/datagruntio/cleanroom/internal/engine"
	"github.com/datagruntio/cleanroom/internal/model"
)

var sentinelList = func() string {
	sentinels := []string{"null", "none", "n/a", "na", "-", "#n/a", "nan", "missing"}
	quoted := make([]string, len(sentinels))
	for i, s := range sentinels {
		quoted[i] = fmt.Sprintf("'%s'", s)
	}
	return strings.Join(quoted, ", ")
}()

func scalarInt64(ctx context.Context, sess *engine.Session, sql string) (int64, error) {
	reader, err := sess.Query(ctx, sql)
	if err != nil {
		return 0, err
	}
	defer reader.Release()
	if !reader.Next() {
		return 0, nil
	}
	rec := reader.Record()
	return cellInt64(rec.Column(0), 0), nil
}

func cellInt64(col arrow.Array, row int) int64 {
	if col.IsNull(row) {
		return 0
	}
	if v, ok := col.GetOneForMarshal(row).(int64); ok {
		return v
	}
	if v, ok := col.GetOneForMarshal(row).(int32); ok {
		return int64(v)
	}
	return 0
}

// step4: null-like normalization, driven by the scan's null_like_strings findings.
func stepNullLikeNormalization(ctx context.Context, sess *engine.Session, tableName string, findings []model.Finding) (*model.Operation, error) {
	flagged := findingsFor(findings, model.CategoryNullLikeStrings)
	if len(flagged) == 0 {
		return nil, nil
	}
	var touched []string
	for _, f := range flagged {
		for _, col := range f.Columns {
			sql := fmt.Sprintf(`UPDATE %s SET %s = NULL WHERE lower(trim(%s)) IN (%s)`, quoteIdent(tableName), quoteIdent(col), quoteIdent(col), sentinelList)
			if err := sess.ExecUnchecked(ctx, sql); err != nil {
				return nil, err
			}
			touched = append(touched, col)
		}
	}
	return &model.Operation{Tag: model.OpNullLikeNormalization, Columns: touched}, nil
}

// dateStandardizationColumns returns columns flagged type_analysis with
// date_castable_rate > 0.9, per spec.md §4.J step 5.
func dateStandardizationColumns(findings []model.Finding) []string {
	var out []string
	for _, f := range findingsFor(findings, model.CategoryTypeAnalysis) {
		if f.TypeAnalysis != nil && f.TypeAnalysis.DateCastableRate > 0.9 {
			out = append(out, f.Columns...)
		}
	}
	return out
}

// step5: date standardization
func stepDateStandardization(ctx context.Context, sess *engine.Session, tableName string, cols []string) (*model.Operation, error) {
	if len(cols) == 0 {
		return nil, nil
	}
	for _, col := range cols {
		sql := fmt.Sprintf(
			`UPDATE %s SET %s = strftime(try_cast(%s AS DATE), '%%Y-%%m-%%d')`,
			quoteIdent(tableName), quoteIdent(col), quoteIdent(col),
		)
		if err := sess.ExecUnchecked(ctx, sql); err != nil {
			return nil, err
		}
	}
	return &model.Operation{Tag: model.OpDateStandardization, Columns: cols}, nil
}

// step6: type coercion (skips DATE, handled above). Columns with leading
// zeros are recorded as identifier columns and left as text.
func stepTypeCoercion(ctx context.Context, sess *engine.Session, tableName string, findings []model.Finding, dateCols []string) (*model.Operation, []model.IdentifierColumn, error) {
	dateSet := make(map[string]struct{}, len(dateCols))
	for _, c := range dateCols {
		dateSet[c] = struct{}{}
	}

	var touched []string
	var identifiers []model.IdentifierColumn

	for _, f := range findingsFor(findings, model.CategoryTypeAnalysis) {
		if f.TypeAnalysis == nil {
			continue
		}
		for _, col := range f.Columns {
			if _, isDate := dateSet[col]; isDate {
				continue
			}
			if f.TypeAnalysis.LeadingZeroCount > 0 {
				identifiers = append(identifiers, model.IdentifierColumn{
					Column:      col,
					Pattern:     `^0[0-9]+$`,
					PreservedAs: "VARCHAR",
				})
				continue
			}
			cast := f.TypeAnalysis.SuggestedCast
			if cast == model.CastNone || cast == model.CastDate {
				continue
			}
			alterSQL := fmt.Sprintf(
				`ALTER TABLE %s ALTER COLUMN %s SET DATA TYPE %s USING try_cast(%s AS %s)`,
				quoteIdent(tableName), quoteIdent(col), string(cast), quoteIdent(col), string(cast),
			)
			if err := sess.ExecUnchecked(ctx, alterSQL); err != nil {
				continue // safe-cast failure leaves the column as-is, never fatal
			}
			touched = append(touched, col)
		}
	}

	if len(touched) == 0 {
		return nil, identifiers, nil
	}
	return &model.Operation{Tag: model.OpTypeCoercion, Columns: touched}, identifiers, nil
}

// step7: mixed-case normalization for VARCHAR columns with distinct count < 50.
func stepMixedCaseNormalization(ctx context.Context, sess *engine.Session, tableName string, cols []string) (*model.Operation, error) {
	varchars, err := varcharColumns(ctx, sess, tableName, cols)
	if err != nil || len(varchars) == 0 {
		return nil, err
	}

	var touched []string
	for _, col := range varchars {
		distinct, err := scalarInt64(ctx, sess, fmt.Sprintf(`SELECT COUNT(DISTINCT %s) FROM %s`, quoteIdent(col), quoteIdent(tableName)))
		if err != nil {
			continue
		}
		if distinct >= 50 {
			continue
		}

		mixedCount, err := scalarInt64(ctx, sess, fmt.Sprintf(
			`SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND %s != lower(%s)`,
			quoteIdent(tableName), quoteIdent(col), quoteIdent(col), quoteIdent(col),
		))
		if err != nil || mixedCount == 0 {
			continue
		}

		updateSQL := fmt.Sprintf(`UPDATE %s SET %s = lower(%s) WHERE %s IS NOT NULL`, quoteIdent(tableName), quoteIdent(col), quoteIdent(col), quoteIdent(col))
		if err := sess.ExecUnchecked(ctx, updateSQL); err != nil {
			return nil, err
		}
		touched = append(touched, col)
	}
	if len(touched) == 0 {
		return nil, nil
	}
	return &model.Operation{Tag: model.OpMixedCaseNormalization, Columns: touched}, nil
}

// step8: soft dedup. Adds is_duplicate, marking all-but-first occurrence
// of each group of rows whose non-protected column values, cast to text
// and joined with 0x1f, are equal. Never deletes rows.
func stepSoftDedup(ctx context.Context, sess *engine.Session, tableName string, unprotectedCols []string, hasDuplicateFinding bool) (*model.Operation, error) {
	if !hasDuplicateFinding || len(unprotectedCols) == 0 {
		return nil, nil
	}

	names, err := sess.ColumnNames(ctx, tableName)
	if err != nil {
		return nil, err
	}
	hasColumn := false
	for _, n := range names {
		if n == protectedDuplicateColumn {
			hasColumn = true
			break
		}
	}
	if !hasColumn {
		if err := sess.ExecUnchecked(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s BOOLEAN DEFAULT false`, quoteIdent(tableName), quoteIdent(protectedDuplicateColumn))); err != nil {
			return nil, err
		}
	}

	concatExpr := make([]string, len(unprotectedCols))
	for i, c := range unprotectedCols {
		concatExpr[i] = fmt.Sprintf(`coalesce(try_cast(%s AS VARCHAR), '')`, quoteIdent(c))
	}
	hashExpr := fmt.Sprintf(`concat(%s)`, strings.Join(concatExpr, ", '\x1f', "))

	sql := fmt.Sprintf(
		`WITH ranked AS (
			SELECT rowid, row_number() OVER (PARTITION BY %s ORDER BY rowid) AS rn
			FROM %s
		)
		UPDATE %s SET %s = true
		FROM ranked
		WHERE %s.rowid = ranked.rowid AND ranked.rn > 1`,
		hashExpr, quoteIdent(tableName), quoteIdent(tableName), quoteIdent(protectedDuplicateColumn), quoteIdent(tableName),
	)
	if err := sess.ExecUnchecked(ctx, sql); err != nil {
		return nil, err
	}

	return &model.Operation{
		Tag:     model.OpSoftDedup,
		Columns: []string{protectedDuplicateColumn},
		Metrics: map[string]any{"grouping_key": "columns_joined_0x1f"},
	}, nil
}

// RowHash computes the xxhash64 of a row's non-protected column values
// joined with 0x1f, the same joined key the soft-dedup step partitions by
// in SQL (where the joined text itself is compared; SQL does not hash it)
// — exposed so tests can assert dedup grouping independent of DuckDB
// window functions.
func RowHash(values []string) uint64 {
	h := xxhash.New()
	for i, v := range values {
		if i > 0 {
			_, _ = h.Write([]byte{0x1f})
		}
		_, _ = h.Write([]byte(v))
	}
	return h.Sum64()
}

// step9: high-null column removal
func stepHighNullColumnRemoval(ctx context.Context, sess *engine.Session, tableName string, findings []model.Finding, protected map[string]struct{}) (*model.Operation, error) {
	var toDrop []string
	for _, f := range findingsFor(findings, model.CategoryNullAnalysis) {
		if f.NullAnalysis != nil && f.NullAnalysis.NullRate > 0.9 {
			for _, col := range f.Columns {
				if _, isProtected := protected[col]; !isProtected {
					toDrop = append(toDrop, col)
				}
			}
		}
	}
	if len(toDrop) == 0 {
		return nil, nil
	}
	for _, col := range toDrop {
		if err := sess.ExecUnchecked(ctx, fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s`, quoteIdent(tableName), quoteIdent(col))); err != nil {
			return nil, err
		}
	}
	return &model.Operation{Tag: model.OpHighNullColumnRemoval, Columns: toDrop}, nil
}

// step10: constant column removal
func stepConstantColumnRemoval(ctx context.Context, sess *engine.Session, tableName string, findings []model.Finding, protected map[string]struct{}) (*model.Operation, error) {
	var toDrop []string
	for _, f := range findingsFor(findings, model.CategoryConstantColumns) {
		for _, col := range f.Columns {
			if _, isProtected := protected[col]; !isProtected {
				toDrop = append(toDrop, col)
			}
		}
	}
	if len(toDrop) == 0 {
		return nil, nil
	}
	for _, col := range toDrop {
		if err := sess.ExecUnchecked(ctx, fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s`, quoteIdent(tableName), quoteIdent(col))); err != nil {
			return nil, err
		}
	}
	return &model.Operation{Tag: model.OpConstantColumnRemoval, Columns: toDrop}, nil
}

// step11: PII detection. Samples up to 5 distinct non-null values per
// column and submits one combined classification request. Best-effort:
// a detector failure yields an empty list, never fatal, per spec.md §7.
func stepPIIDetection(ctx context.Context, sess *engine.Session, detector collab.PIIDetector, tableName string, cols []string) (*model.Operation, []model.PIIFinding) {
	if len(cols) == 0 {
		return nil, nil
	}

	samples := make(map[string][]string, len(cols))
	for _, col := range cols {
		sql := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL LIMIT 5`, quoteIdent(col), quoteIdent(tableName), quoteIdent(col))
		reader, err := sess.Query(ctx, sql)
		if err != nil {
			continue
		}
		var values []string
		for reader.Next() {
			rec := reader.Record()
			for row := 0; row < int(rec.NumRows()); row++ {
				values = append(values, fmt.Sprintf("%v", rec.Column(0).GetOneForMarshal(row)))
			}
		}
		reader.Release()
		samples[col] = values
	}

	findings, err := detector.DetectPII(ctx, cols, samples)
	if err != nil || len(findings) == 0 {
		return nil, nil
	}

	flaggedCols := make([]string, len(findings))
	for i, f := range findings {
		flaggedCols[i] = f.Column
	}
	return &model.Operation{Tag: model.OpPIIDetection, Columns: flaggedCols}, findings
}

// step12: precision flag. For each numeric column, compute min/max
// decimal places observed; emit an informational flag when they differ.
func stepPrecisionFlag(ctx context.Context, sess *engine.Session, tableName string, cols []string, protected map[string]struct{}) (*model.Operation, []model.PrecisionFlag, error) {
	types, err := sess.ColumnTypes(ctx, tableName)
	if err != nil {
		return nil, nil, err
	}

	var flags []model.PrecisionFlag
	var touched []string
	for _, col := range cols {
		if _, isProtected := protected[col]; isProtected {
			continue
		}
		if !isNumericType(types[col]) {
			continue
		}
		sql := fmt.Sprintf(
			`SELECT MIN(len(split_part(try_cast(%s AS VARCHAR), '.', 2))) AS min_d,
			         MAX(len(split_part(try_cast(%s AS VARCHAR), '.', 2))) AS max_d
			  FROM %s WHERE %s IS NOT NULL`,
			quoteIdent(col), quoteIdent(col), quoteIdent(tableName), quoteIdent(col),
		)
		reader, err := sess.Query(ctx, sql)
		if err != nil {
			continue
		}
		var minD, maxD int64
		if reader.Next() {
			rec := reader.Record()
			minD = cellInt64(rec.Column(0), 0)
			maxD = cellInt64(rec.Column(1), 0)
		}
		reader.Release()
		if minD != maxD {
			flags = append(flags, model.PrecisionFlag{Column: col, MinDecimals: int(minD), MaxDecimals: int(maxD)})
			touched = append(touched, col)
		}
	}

	if len(touched) == 0 {
		return nil, flags, nil
	}
	return &model.Operation{Tag: model.OpPrecisionFlag, Columns: touched}, flags, nil
}

func isNumericType(t string) bool {
	switch strings.ToUpper(t) {
	case "BIGINT", "INTEGER", "DOUBLE", "FLOAT", "DECIMAL", "SMALLINT", "TINYINT", "HUGEINT", "REAL":
		return true
	// Arrow type names, as reported by engine.Session.ColumnTypes.
	case "INT8", "INT16", "INT32", "INT64", "UINT8", "UINT16", "UINT32", "UINT64",
		"FLOAT16", "FLOAT32", "FLOAT64", "DECIMAL256":
		return true
	default:
		return false
	}
}
