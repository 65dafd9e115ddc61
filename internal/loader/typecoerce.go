package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/datagruntio/cleanroom/internal/engine"
)

// coercionStats holds the per-column castability rates computed by the
// wide FILTER query spec.md §4.F/§4.I describe.
type coercionStats struct {
	nonNull         int64
	castableDouble  int64
	castableDate    int64
	castableBoolean int64
	leadingZero     int64
}

// SuggestedCast returns the type a VARCHAR column should be coerced to,
// or "" to keep it as text, per spec.md §4.F's rule: ≥90% of non-null
// values qualify *and* no leading zeros are present.
func (s coercionStats) SuggestedCast() string {
	if s.nonNull == 0 || s.leadingZero > 0 {
		return ""
	}
	threshold := float64(s.nonNull) * 0.9
	switch {
	case float64(s.castableDouble) >= threshold:
		return "DOUBLE"
	case float64(s.castableDate) >= threshold:
		return "DATE"
	case float64(s.castableBoolean) >= threshold:
		return "BOOLEAN"
	default:
		return ""
	}
}

// applySafeTypeCoercion computes coercion stats for every VARCHAR column
// and ALTERs the ones that qualify, per spec.md §4.F.
func applySafeTypeCoercion(ctx context.Context, sess *engine.Session, tableName string) error {
	varcharCols, err := varcharColumns(ctx, sess, tableName)
	if err != nil {
		return err
	}
	if len(varcharCols) == 0 {
		return nil
	}

	stats, err := computeCoercionStats(ctx, sess, tableName, varcharCols)
	if err != nil {
		return err
	}

	for _, col := range varcharCols {
		cast := stats[col].SuggestedCast()
		if cast == "" {
			continue
		}
		sql := fmt.Sprintf(`ALTER TABLE "%s" ALTER COLUMN "%s" SET DATA TYPE %s USING try_cast("%s" AS %s)`, tableName, col, cast, col, cast)
		if err := sess.ExecUnchecked(ctx, sql); err != nil {
			continue // leave as text on failure; never fatal per spec.md §7
		}
	}
	return nil
}

func varcharColumns(ctx context.Context, sess *engine.Session, tableName string) ([]string, error) {
	types, err := sess.ColumnTypes(ctx, tableName)
	if err != nil {
		return nil, err
	}
	var out []string
	for name, typ := range types {
		if strings.EqualFold(typ, "utf8") || strings.EqualFold(typ, "varchar") || strings.EqualFold(typ, "string") {
			out = append(out, name)
		}
	}
	return out, nil
}

func computeCoercionStats(ctx context.Context, sess *engine.Session, tableName string, cols []string) (map[string]coercionStats, error) {
	selects := make([]string, 0, len(cols)*5)
	for _, c := range cols {
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

	out := make(map[string]coercionStats, len(cols))
	if reader.Next() {
		rec := reader.Record()
		for i, c := range cols {
			base := i * 5
			out[c] = coercionStats{
				nonNull:         columnAsInt64(rec.Column(base)),
				castableDouble:  columnAsInt64(rec.Column(base + 1)),
				castableDate:    columnAsInt64(rec.Column(base + 2)),
				castableBoolean: columnAsInt64(rec.Column(base + 3)),
				leadingZero:     columnAsInt64(rec.Column(base + 4)),
			}
		}
	}
	return out, nil
}
