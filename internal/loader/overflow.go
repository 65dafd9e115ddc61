package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"

	"github.com/datagruntio/cleanroom/internal/engine"
)

// DetectAndRepairOverflow finds the contiguous trailing block of overflow
// columns (NULL count ≥80% of total rows) and, if any exist, rebuilds the
// table keeping only the real columns plus a boolean is_shifted column,
// per spec.md §4.F's overflow detection/repair rule. It returns the
// number of overflow columns found and their original names.
func DetectAndRepairOverflow(ctx context.Context, sess *engine.Session, tableName string) (int, []string, error) {
	names, err := sess.ColumnNames(ctx, tableName)
	if err != nil {
		return 0, nil, err
	}
	if len(names) == 0 {
		return 0, nil, nil
	}

	total, err := sess.RowCount(ctx, tableName)
	if err != nil {
		return 0, nil, err
	}
	if total == 0 {
		return 0, nil, nil
	}

	nullRates, err := nullCountsPerColumn(ctx, sess, tableName, names)
	if err != nil {
		return 0, nil, err
	}

	overflow := trailingOverflowBlock(names, nullRates, total)
	if len(overflow) == 0 {
		return 0, nil, nil
	}

	if err := rebuildWithoutOverflow(ctx, sess, tableName, names, overflow); err != nil {
		return 0, nil, err
	}
	return len(overflow), overflow, nil
}

func nullCountsPerColumn(ctx context.Context, sess *engine.Session, tableName string, names []string) (map[string]int64, error) {
	selects := make([]string, len(names))
	for i, n := range names {
		selects[i] = fmt.Sprintf(`COUNT(*) FILTER (WHERE "%s" IS NULL) AS "%s"`, n, n)
	}
	sql := fmt.Sprintf(`SELECT %s FROM "%s"`, strings.Join(selects, ", "), tableName)

	reader, err := sess.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	out := make(map[string]int64, len(names))
	if reader.Next() {
		rec := reader.Record()
		for i, n := range names {
			out[n] = columnAsInt64(rec.Column(i))
		}
	}
	return out, nil
}

// trailingOverflowBlock returns the contiguous run of trailing columns
// whose null count is ≥80% of total rows.
func trailingOverflowBlock(names []string, nullCounts map[string]int64, total int64) []string {
	threshold := float64(total) * 0.8
	var overflow []string
	for i := len(names) - 1; i >= 0; i-- {
		n := names[i]
		if float64(nullCounts[n]) >= threshold {
			overflow = append([]string{n}, overflow...)
		} else {
			break
		}
	}
	return overflow
}

func rebuildWithoutOverflow(ctx context.Context, sess *engine.Session, tableName string, names, overflow []string) error {
	overflowSet := make(map[string]struct{}, len(overflow))
	for _, n := range overflow {
		overflowSet[n] = struct{}{}
	}

	var keep []string
	for _, n := range names {
		if _, ok := overflowSet[n]; !ok {
			keep = append(keep, fmt.Sprintf(`"%s"`, n))
		}
	}

	shiftedConds := make([]string, len(overflow))
	for i, n := range overflow {
		shiftedConds[i] = fmt.Sprintf(`(try_cast("%s" AS VARCHAR) IS NOT NULL AND trim(try_cast("%s" AS VARCHAR)) != '')`, n, n)
	}

	rebuiltName := tableName + "__rebuilt"
	sql := fmt.Sprintf(
		`CREATE TABLE "%s" AS SELECT %s, (%s) AS is_shifted FROM "%s"`,
		rebuiltName, strings.Join(keep, ", "), strings.Join(shiftedConds, " OR "), tableName,
	)
	if err := sess.ExecUnchecked(ctx, sql); err != nil {
		return err
	}
	if err := sess.ExecUnchecked(ctx, fmt.Sprintf(`DROP TABLE "%s"`, tableName)); err != nil {
		return err
	}
	return sess.ExecUnchecked(ctx, fmt.Sprintf(`ALTER TABLE "%s" RENAME TO "%s"`, rebuiltName, tableName))
}

func columnAsInt64(col arrow.Array) int64 {
	if col.IsNull(0) {
		return 0
	}
	v, ok := col.GetOneForMarshal(0).(int64)
	if !ok {
		return 0
	}
	return v
}
