// Package quality implements the Quality Scanner of spec.md §4.I: one
// pass over the data in ~4 wide analytic queries producing the Finding
// records internal/model defines. Grounded on the teacher's
// pkg/csv/infer_schema.go, which issues a handful of wide analytic
// queries against a sample to characterize a file before committing to a
// schema — generalized here from schema inference to the full
// null/type/whitespace/duplicate/outlier sweep.
package quality

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"

	"github.com/datagruntio/cleanroom/internal/engine"
	"github.com/datagruntio/cleanroom/internal/model"
)

const protectedTimestampColumn = "processed_at"

var nullLikeSentinels = []string{"null", "none", "n/a", "na", "-", "", "#n/a", "nan", "missing"}

// Scan runs the full observational audit against tableName and returns
// its findings in the fixed order of spec.md §4.I's four stages.
func Scan(ctx context.Context, sess *engine.Session, tableName string) ([]model.Finding, error) {
	var findings []model.Finding

	summarize, err := summarizeColumns(ctx, sess, tableName)
	if err != nil {
		return nil, err
	}
	findings = append(findings, nullAnalysisFindings(summarize)...)
	if f := constantColumnsFinding(summarize); f != nil {
		findings = append(findings, *f)
	}

	typeFindings, err := typeAnalysis(ctx, sess, tableName, summarize)
	if err != nil {
		return nil, err
	}
	findings = append(findings, typeFindings...)

	nullLikeFindings, whitespaceFindings, err := nullLikeAndWhitespace(ctx, sess, tableName, summarize)
	if err != nil {
		return nil, err
	}
	findings = append(findings, nullLikeFindings...)
	findings = append(findings, whitespaceFindings...)

	dupFinding, err := duplicatesFinding(ctx, sess, tableName)
	if err != nil {
		return nil, err
	}
	if dupFinding != nil {
		findings = append(findings, *dupFinding)
	}

	outlierFindings, err := outliersFindings(ctx, sess, tableName, summarize)
	if err != nil {
		return nil, err
	}
	findings = append(findings, outlierFindings...)

	return findings, nil
}

// columnSummary is one SUMMARIZE row: per-column name, type, null rate
// and approximate distinct count, per spec.md §4.I stage 1.
type columnSummary struct {
	name         string
	columnType   string
	nullRate     float64
	distinctApprox int64
}

func summarizeColumns(ctx context.Context, sess *engine.Session, tableName string) ([]columnSummary, error) {
	reader, err := sess.Query(ctx, fmt.Sprintf(`SUMMARIZE SELECT * FROM "%s"`, tableName))
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	var out []columnSummary
	idx := summarizeColumnIndexes(reader.Schema())

	for reader.Next() {
		rec := reader.Record()
		for row := 0; row < int(rec.NumRows()); row++ {
			name := stringCell(rec.Column(idx["column_name"]), row)
			if name == protectedTimestampColumn || name == "is_duplicate" {
				continue
			}
			out = append(out, columnSummary{
				name:           name,
				columnType:     stringCell(rec.Column(idx["column_type"]), row),
				nullRate:       floatCell(rec.Column(idx["null_percentage"]), row) / 100.0,
				distinctApprox: intCell(rec.Column(idx["approx_unique"]), row),
			})
		}
	}
	return out, nil
}

// summarizeColumnIndexes maps DuckDB's SUMMARIZE output column names to
// their position, since SUMMARIZE's schema is fixed but this keeps the
// lookup readable.
func summarizeColumnIndexes(schema *arrow.Schema) map[string]int {
	idx := make(map[string]int, schema.NumFields())
	for i, f := range schema.Fields() {
		idx[f.Name] = i
	}
	return idx
}

func nullAnalysisFindings(summary []columnSummary) []model.Finding {
	var findings []model.Finding
	for _, col := range summary {
		if col.nullRate <= 0.5 {
			continue
		}
		severity := model.SeverityWarning
		if col.nullRate > 0.9 {
			severity = model.SeverityCritical
		}
		findings = append(findings, model.Finding{
			Category: model.CategoryNullAnalysis,
			Severity: severity,
			Columns:  []string{col.name},
			NullAnalysis: &model.NullAnalysisDetail{
				NullRate: col.nullRate,
			},
		})
	}
	return findings
}

func constantColumnsFinding(summary []columnSummary) *model.Finding {
	var constants []string
	for _, col := range summary {
		if col.distinctApprox <= 1 {
			constants = append(constants, col.name)
		}
	}
	if len(constants) == 0 {
		return nil
	}
	return &model.Finding{
		Category: model.CategoryConstantColumns,
		Severity: model.SeverityInfo,
		Columns:  constants,
	}
}

func typeAnalysis(ctx context.Context, sess *engine.Session, tableName string, summary []columnSummary) ([]model.Finding, error) {
	varcharCols := filterVarchar(summary)
	if len(varcharCols) == 0 {
		return nil, nil
	}

	selects := make([]string, 0, len(varcharCols)*5)
	for _, c := range varcharCols {
		selects = append(selects,
			fmt.Sprintf(`COUNT(*) FILTER (WHERE "%s" IS NOT NULL) AS "%s__nonnull"`, c, c),
			fmt.Sprintf(`COUNT(*) FILTER (WHERE try_cast("%s" AS DOUBLE) IS NOT NULL) AS "%s__double"`, c, c),
			fmt.Sprintf(`COUNT(*) FILTER (WHERE try_cast("%s" AS DATE) IS NOT NULL) AS "%s__date"`, c, c),
			fmt.Sprintf(`COUNT(*) FILTER (WHERE lower(trim("%s")) IN ('true','false','t','f','yes','no','1','0')) AS "%s__bool"`, c, c),
			fmt.Sprintf(`COUNT(*) FILTER (WHERE "%s" ~ '^0[0-9]+$') AS "%s__leadzero"`, c, c),
		)
	}
	sql := fmt.Sprintf(`SELECT %s FROM "%s"`, strings.Join(selects, ", "), tableName)

	reader, err := sess.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	var findings []model.Finding
	if reader.Next() {
		rec := reader.Record()
		for i, col := range varcharCols {
			base := i * 5
			nonNull := intCellArr(rec.Column(base))
			doubleCount := intCellArr(rec.Column(base + 1))
			dateCount := intCellArr(rec.Column(base + 2))
			boolCount := intCellArr(rec.Column(base + 3))
			leadZero := intCellArr(rec.Column(base + 4))

			if nonNull == 0 {
				continue
			}
			doubleRate := float64(doubleCount) / float64(nonNull)
			dateRate := float64(dateCount) / float64(nonNull)
			boolRate := float64(boolCount) / float64(nonNull)

			if doubleRate <= 0.9 && dateRate <= 0.9 && boolRate <= 0.9 && leadZero == 0 {
				continue
			}

			var cast model.SuggestedCast
			switch {
			case leadZero > 0:
				cast = model.CastNone
			case doubleRate > 0.9:
				cast = model.CastDouble
			case dateRate > 0.9:
				cast = model.CastDate
			case boolRate > 0.9:
				cast = model.CastBoolean
			default:
				cast = model.CastNone
			}

			severity := model.SeverityWarning
			if leadZero > 0 && (doubleRate > 0.9 || dateRate > 0.9) {
				severity = model.SeverityWarning
			}

			findings = append(findings, model.Finding{
				Category: model.CategoryTypeAnalysis,
				Severity: severity,
				Columns:  []string{col},
				TypeAnalysis: &model.TypeAnalysisDetail{
					DoubleCastableRate:  doubleRate,
					DateCastableRate:    dateRate,
					BooleanCastableRate: boolRate,
					LeadingZeroCount:    leadZero,
					SuggestedCast:       cast,
				},
			})
		}
	}
	return findings, nil
}

func nullLikeAndWhitespace(ctx context.Context, sess *engine.Session, tableName string, summary []columnSummary) ([]model.Finding, []model.Finding, error) {
	varcharCols := filterVarchar(summary)
	if len(varcharCols) == 0 {
		return nil, nil, nil
	}

	quotedSentinels := make([]string, len(nullLikeSentinels))
	for i, s := range nullLikeSentinels {
		quotedSentinels[i] = fmt.Sprintf("'%s'", strings.ReplaceAll(s, "'", "''"))
	}
	sentinelList := strings.Join(quotedSentinels, ", ")

	selects := make([]string, 0, len(varcharCols)*2)
	for _, c := range varcharCols {
		selects = append(selects,
			fmt.Sprintf(`COUNT(*) FILTER (WHERE lower(trim("%s")) IN (%s)) AS "%s__nulllike"`, c, sentinelList, c),
			fmt.Sprintf(`COUNT(*) FILTER (WHERE "%s" IS NOT NULL AND "%s" != trim("%s")) AS "%s__ws"`, c, c, c, c),
		)
	}
	sql := fmt.Sprintf(`SELECT %s FROM "%s"`, strings.Join(selects, ", "), tableName)

	reader, err := sess.Query(ctx, sql)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Release()

	var nullLike, whitespace []model.Finding
	if reader.Next() {
		rec := reader.Record()
		for i, col := range varcharCols {
			base := i * 2
			nullLikeCount := intCellArr(rec.Column(base))
			wsCount := intCellArr(rec.Column(base + 1))

			if nullLikeCount > 0 {
				nullLike = append(nullLike, model.Finding{
					Category: model.CategoryNullLikeStrings,
					Severity: model.SeverityInfo,
					Columns:  []string{col},
					NullLikeStrings: &model.NullLikeStringsDetail{Count: nullLikeCount},
				})
			}
			if wsCount > 0 {
				whitespace = append(whitespace, model.Finding{
					Category: model.CategoryWhitespace,
					Severity: model.SeverityInfo,
					Columns:  []string{col},
					Whitespace: &model.WhitespaceDetail{Count: wsCount},
				})
			}
		}
	}
	return nullLike, whitespace, nil
}

func duplicatesFinding(ctx context.Context, sess *engine.Session, tableName string) (*model.Finding, error) {
	names, err := sess.ColumnNames(ctx, tableName)
	if err != nil {
		return nil, err
	}
	var cols []string
	for _, n := range names {
		if n != protectedTimestampColumn {
			cols = append(cols, fmt.Sprintf(`"%s"`, n))
		}
	}
	if len(cols) == 0 {
		return nil, nil
	}

	sql := fmt.Sprintf(`SELECT (COUNT(*) - COUNT(DISTINCT (%s))) AS dup_count FROM "%s"`, strings.Join(cols, ", "), tableName)
	reader, err := sess.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	if !reader.Next() {
		return nil, nil
	}
	rec := reader.Record()
	dupCount := intCellArr(rec.Column(0))
	if dupCount <= 0 {
		return nil, nil
	}

	severity := model.SeverityWarning
	if dupCount > 100 {
		severity = model.SeverityCritical
	}
	return &model.Finding{
		Category: model.CategoryDuplicates,
		Severity: severity,
		Duplicates: &model.DuplicatesDetail{Count: dupCount},
	}, nil
}

func outliersFindings(ctx context.Context, sess *engine.Session, tableName string, summary []columnSummary) ([]model.Finding, error) {
	var numeric []string
	for _, col := range summary {
		if isNumericType(col.columnType) {
			numeric = append(numeric, col.name)
		}
	}
	if len(numeric) == 0 {
		return nil, nil
	}

	var findings []model.Finding
	for _, col := range numeric {
		sql := fmt.Sprintf(
			`WITH q AS (SELECT approx_quantile("%s", 0.25) AS q1, approx_quantile("%s", 0.75) AS q3 FROM "%s")
			 SELECT q1, q3, (SELECT COUNT(*) FROM "%s", q WHERE "%s" < q1 - 1.5*(q3-q1) OR "%s" > q3 + 1.5*(q3-q1)) AS outlier_count FROM q`,
			col, col, tableName, tableName, col, col,
		)
		reader, err := sess.Query(ctx, sql)
		if err != nil {
			continue // outlier detection is best-effort, never fatal, per spec.md §7
		}
		if reader.Next() {
			rec := reader.Record()
			q1 := floatCell(rec.Column(0), 0)
			q3 := floatCell(rec.Column(1), 0)
			outlierCount := intCellArr(rec.Column(2))
			if outlierCount > 0 {
				iqr := q3 - q1
				findings = append(findings, model.Finding{
					Category: model.CategoryOutliers,
					Severity: model.SeverityInfo,
					Columns:  []string{col},
					Outliers: &model.OutliersDetail{
						Count:      outlierCount,
						LowerBound: q1 - 1.5*iqr,
						UpperBound: q3 + 1.5*iqr,
					},
				})
			}
		}
		reader.Release()
	}
	return findings, nil
}

func filterVarchar(summary []columnSummary) []string {
	var out []string
	for _, col := range summary {
		if strings.EqualFold(col.columnType, "VARCHAR") {
			out = append(out, col.name)
		}
	}
	return out
}

func isNumericType(t string) bool {
	switch strings.ToUpper(t) {
	case "BIGINT", "INTEGER", "DOUBLE", "FLOAT", "DECIMAL", "SMALLINT", "TINYINT", "HUGEINT", "REAL":
		return true
	default:
		return false
	}
}

func stringCell(col arrow.Array, row int) string {
	if col.IsNull(row) {
		return ""
	}
	return fmt.Sprintf("%v", col.GetOneForMarshal(row))
}

func floatCell(col arrow.Array, row int) float64 {
	if col.IsNull(row) {
		return 0
	}
	switch v := col.GetOneForMarshal(row).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	default:
		return 0
	}
}

func intCell(col arrow.Array, row int) int64 {
	if col.IsNull(row) {
		return 0
	}
	switch v := col.GetOneForMarshal(row).(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	default:
		return 0
	}
}

func intCellArr(col arrow.Array) int64 {
	return intCell(col, 0)
}
