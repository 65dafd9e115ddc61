// Package cleaning implements the Cleaning Engine of spec.md §4.J: a
// strict, ordered, idempotent, row-preserving protocol driven by the
// Quality Scanner's findings. Grounded on the teacher's
// integrations/duckdb/duckdb.go statement-execution style (every step is
// one or more SQL statements issued through the engine). The soft dedup
// step groups rows in SQL by their column values joined with 0x1f;
// RowHash gives the xxhash64 (cespare/xxhash/v2, present in the teacher's
// go.mod unused by any teacher file) of the same joined values for
// Go-side checks.
package cleaning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/datagruntio/cleanroom/internal/collab"
	"github.com/datagruntio/cleanroom/internal/engine"
	"github.com/datagruntio/cleanroom/internal/model"
)

const (
	protectedTimestampColumn = "processed_at"
	protectedDuplicateColumn = "is_duplicate"
)

// windows1252Mojibake maps common mojibake byte sequences (UTF-8 bytes
// misread as Windows-1252 and re-encoded) to their intended codepoints,
// per spec.md §4.J step 1.
var windows1252Mojibake = map[string]string{
	"â€™": "’", // right single quote
	"â€œ": "“", // left double quote
	"â€": "”", // right double quote
	"â€“": "–", // en dash
	"â€”": "—", // em dash
	"Ã©":  "é", // é
	"�": "",
}

// Outcome is what Clean returns: the operations applied plus the
// side-channel records the Cleaning Report needs.
type Outcome struct {
	Operations        []model.Operation
	PIIFindings       []model.PIIFinding
	IdentifierColumns []model.IdentifierColumn
	PrecisionFlags    []model.PrecisionFlag
}

// Clean applies the twelve-step protocol to tableName in the fixed order
// of spec.md §4.J, consuming findings, returning the operations applied
// (steps that took no action are omitted), plus the side-channel records
// (PII findings, identifier columns, precision flags) the Cleaning
// Report needs.
func Clean(ctx context.Context, sess *engine.Session, piiDetector collab.PIIDetector, tableName string, findings []model.Finding) (Outcome, error) {
	var out Outcome

	names, err := sess.ColumnNames(ctx, tableName)
	if err != nil {
		return out, err
	}
	protectedCols := map[string]struct{}{protectedTimestampColumn: {}, protectedDuplicateColumn: {}}
	unprotected := filterProtected(names, protectedCols)

	if op, err := stepUnknownCharReplacement(ctx, sess, tableName, unprotected); err != nil {
		return out, err
	} else if op != nil {
		out.Operations = append(out.Operations, *op)
	}

	if op, err := stepWhitespaceTrim(ctx, sess, tableName, unprotected); err != nil {
		return out, err
	} else if op != nil {
		out.Operations = append(out.Operations, *op)
	}

	if op, err := stepEmptyToNull(ctx, sess, tableName, unprotected); err != nil {
		return out, err
	} else if op != nil {
		out.Operations = append(out.Operations, *op)
	}

	if op, err := stepNullLikeNormalization(ctx, sess, tableName, findings); err != nil {
		return out, err
	} else if op != nil {
		out.Operations = append(out.Operations, *op)
	}

	dateCols := dateStandardizationColumns(findings)
	if op, err := stepDateStandardization(ctx, sess, tableName, dateCols); err != nil {
		return out, err
	} else if op != nil {
		out.Operations = append(out.Operations, *op)
	}

	op, identifierCols, err := stepTypeCoercion(ctx, sess, tableName, findings, dateCols)
	if err != nil {
		return out, err
	}
	if op != nil {
		out.Operations = append(out.Operations, *op)
	}
	out.IdentifierColumns = identifierCols

	if op, err := stepMixedCaseNormalization(ctx, sess, tableName, unprotected); err != nil {
		return out, err
	} else if op != nil {
		out.Operations = append(out.Operations, *op)
	}

	hasDuplicateFinding := findingExists(findings, model.CategoryDuplicates)
	if op, err := stepSoftDedup(ctx, sess, tableName, unprotected, hasDuplicateFinding); err != nil {
		return out, err
	} else if op != nil {
		out.Operations = append(out.Operations, *op)
	}

	if op, err := stepHighNullColumnRemoval(ctx, sess, tableName, findings, protectedCols); err != nil {
		return out, err
	} else if op != nil {
		out.Operations = append(out.Operations, *op)
	}

	if op, err := stepConstantColumnRemoval(ctx, sess, tableName, findings, protectedCols); err != nil {
		return out, err
	} else if op != nil {
		out.Operations = append(out.Operations, *op)
	}

	remaining, err := sess.ColumnNames(ctx, tableName)
	if err != nil {
		return out, err
	}
	piiOp, piiFindings := stepPIIDetection(ctx, sess, piiDetector, tableName, filterProtected(remaining, protectedCols))
	if piiOp != nil {
		out.Operations = append(out.Operations, *piiOp)
	}
	out.PIIFindings = piiFindings

	precisionOp, precisionFlags, err := stepPrecisionFlag(ctx, sess, tableName, remaining, protectedCols)
	if err != nil {
		return out, err
	}
	if precisionOp != nil {
		out.Operations = append(out.Operations, *precisionOp)
	}
	out.PrecisionFlags = precisionFlags

	return out, nil
}

func filterProtected(names []string, protected map[string]struct{}) []string {
	var out []string
	for _, n := range names {
		if _, ok := protected[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

func findingExists(findings []model.Finding, category model.FindingCategory) bool {
	for _, f := range findings {
		if f.Category == category {
			return true
		}
	}
	return false
}

func findingsFor(findings []model.Finding, category model.FindingCategory) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func varcharColumns(ctx context.Context, sess *engine.Session, tableName string, candidates []string) ([]string, error) {
	types, err := sess.ColumnTypes(ctx, tableName)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, c := range candidates {
		// ColumnTypes reports Arrow type names: a VARCHAR column is "utf8".
		if t := types[c]; strings.EqualFold(t, "utf8") || strings.EqualFold(t, "varchar") || strings.EqualFold(t, "string") {
			out = append(out, c)
		}
	}
	return out, nil
}

func escapeSQLLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// step1: unknown-char replacement
func stepUnknownCharReplacement(ctx context.Context, sess *engine.Session, tableName string, cols []string) (*model.Operation, error) {
	varchars, err := varcharColumns(ctx, sess, tableName, cols)
	if err != nil || len(varchars) == 0 {
		return nil, err
	}

	// Longest sequence innermost (applied first), so "â€" cannot split "â€™".
	keys := make([]string, 0, len(windows1252Mojibake))
	for k := range windows1252Mojibake {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	var touched []string
	for _, col := range varchars {
		expr := quoteIdent(col)
		for _, bad := range keys {
			expr = fmt.Sprintf("replace(%s, '%s', '%s')", expr, escapeSQLLiteral(bad), escapeSQLLiteral(windows1252Mojibake[bad]))
		}
		changed, err := scalarInt64(ctx, sess, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND %s != %s`, quoteIdent(tableName), quoteIdent(col), quoteIdent(col), expr))
		if err != nil {
			return nil, err
		}
		if changed == 0 {
			continue
		}
		sql := fmt.Sprintf(`UPDATE %s SET %s = %s WHERE %s IS NOT NULL`, quoteIdent(tableName), quoteIdent(col), expr, quoteIdent(col))
		if err := sess.ExecUnchecked(ctx, sql); err != nil {
			return nil, err
		}
		touched = append(touched, col)
	}
	if len(touched) == 0 {
		return nil, nil
	}
	return &model.Operation{Tag: model.OpUnknownCharReplacement, Columns: touched}, nil
}

// step2: whitespace trim
func stepWhitespaceTrim(ctx context.Context, sess *engine.Session, tableName string, cols []string) (*model.Operation, error) {
	varchars, err := varcharColumns(ctx, sess, tableName, cols)
	if err != nil || len(varchars) == 0 {
		return nil, err
	}
	var touched []string
	for _, col := range varchars {
		changed, err := scalarInt64(ctx, sess, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND %s != trim(%s)`, quoteIdent(tableName), quoteIdent(col), quoteIdent(col), quoteIdent(col)))
		if err != nil {
			return nil, err
		}
		if changed == 0 {
			continue
		}
		sql := fmt.Sprintf(
			`UPDATE %s SET %s = trim(%s) WHERE %s IS NOT NULL AND %s != trim(%s)`,
			quoteIdent(tableName), quoteIdent(col), quoteIdent(col), quoteIdent(col), quoteIdent(col), quoteIdent(col),
		)
		if err := sess.ExecUnchecked(ctx, sql); err != nil {
			return nil, err
		}
		touched = append(touched, col)
	}
	if len(touched) == 0 {
		return nil, nil
	}
	return &model.Operation{Tag: model.OpWhitespaceTrim, Columns: touched}, nil
}

// step3: empty->NULL
func stepEmptyToNull(ctx context.Context, sess *engine.Session, tableName string, cols []string) (*model.Operation, error) {
	varchars, err := varcharColumns(ctx, sess, tableName, cols)
	if err != nil || len(varchars) == 0 {
		return nil, err
	}
	var touched []string
	for _, col := range varchars {
		changed, err := scalarInt64(ctx, sess, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE trim(%s) = ''`, quoteIdent(tableName), quoteIdent(col)))
		if err != nil {
			return nil, err
		}
		if changed == 0 {
			continue
		}
		sql := fmt.Sprintf(`UPDATE %s SET %s = NULL WHERE trim(%s) = ''`, quoteIdent(tableName), quoteIdent(col), quoteIdent(col))
		if err := sess.ExecUnchecked(ctx, sql); err != nil {
			return nil, err
		}
		touched = append(touched, col)
	}
	if len(touched) == 0 {
		return nil, nil
	}
	return &model.Operation{Tag: model.OpEmptyToNull, Columns: touched}, nil
}
