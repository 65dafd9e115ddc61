package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/datagruntio/cleanroom/internal/engine"
	"github.com/datagruntio/cleanroom/internal/errs"
	"github.com/datagruntio/cleanroom/internal/jsonutil"
)

// ClassifyJSON determines array vs. line-delimited JSON by the first
// non-blank character, per spec.md §4.G.
func ClassifyJSON(data []byte) string {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return "auto"
	}
	switch trimmed[0] {
	case '[':
		return "array"
	case '{':
		return "line-delimited"
	default:
		return "auto"
	}
}

// LoadJSON runs the JSON Loader's fast path (the engine's native JSON
// reader), falling back to the validate-and-repair recovery path on
// failure, per spec.md §4.G.
func LoadJSON(ctx context.Context, sess *engine.Session, path, tableName string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("loader: failed to read %s: %w", path, err)
	}
	kind := ClassifyJSON(data)
	sourceRows, err := countJSONRecords(data, kind)
	if err != nil {
		return Result{}, err
	}

	if res, err := loadJSONFastPath(ctx, sess, path, tableName, kind, sourceRows); err == nil {
		return res, nil
	}

	return loadJSONRecoveryPath(ctx, sess, data, tableName, kind, sourceRows)
}

func loadJSONFastPath(ctx context.Context, sess *engine.Session, path, tableName, kind string, sourceRows int64) (Result, error) {
	format := "auto"
	if kind == "array" {
		format = "array"
	} else if kind == "line-delimited" {
		format = "newline_delimited"
	}

	sql := fmt.Sprintf(`CREATE TABLE "%s" AS SELECT * FROM read_json_auto('%s', format='%s')`, tableName, escapeLiteral(path), format)
	if err := sess.ExecUnchecked(ctx, sql); err != nil {
		return Result{}, err
	}
	sess.RegisterTable(tableName, engine.TableInfo{SourcePath: path, SourceFormat: "JSON", SourceRowCount: sourceRows})

	mapping, err := normalizeColumns(ctx, sess, tableName)
	if err != nil {
		return Result{}, err
	}

	if err := checkAtomicity(ctx, sess, tableName, sourceRows, 0, "fast_path"); err != nil {
		return Result{}, err
	}

	loaded, err := sess.RowCount(ctx, tableName)
	if err != nil {
		return Result{}, err
	}
	return Result{
		TableName:      tableName,
		SourceRowCount: sourceRows,
		LoadedRowCount: loaded,
		ParseStrategy:  "fast_path",
		ColumnsRenamed: mapping,
	}, nil
}

// loadJSONRecoveryPath validates, then repairs a copy if invalid, per
// spec.md §4.G. Array repair is all-or-nothing; line-delimited repair
// accepts only if every line parses post-repair.
func loadJSONRecoveryPath(ctx context.Context, sess *engine.Session, data []byte, tableName, kind string, sourceRows int64) (Result, error) {
	var repaired []byte
	var strategy string

	if kind == "array" {
		if jsonutil.IsStructurallyValid(data) {
			repaired = data
			strategy = "recovery_no_repair_needed"
		} else {
			candidate := repairJSON(data)
			if !jsonutil.IsStructurallyValid(candidate) {
				return Result{}, errs.NewFormatError("JSON loader: array repair failed to produce valid JSON")
			}
			repaired = candidate
			strategy = "recovery_repaired"
		}
	} else {
		lines := bytes.Split(data, []byte("\n"))
		var unrecoverable []string
		out := make([][]byte, 0, len(lines))
		for i, line := range lines {
			trimmed := bytes.TrimSpace(line)
			if len(trimmed) == 0 {
				continue
			}
			if jsonutil.LineIsValidJSON(trimmed) {
				out = append(out, trimmed)
				continue
			}
			repairedLine := repairJSON(trimmed)
			if jsonutil.LineIsValidJSON(repairedLine) {
				out = append(out, repairedLine)
				continue
			}
			unrecoverable = append(unrecoverable, fmt.Sprintf("line %d: %s", i+1, firstN(string(trimmed), 80)))
		}
		if len(unrecoverable) > 0 {
			return Result{}, errs.NewFormatError("JSON loader: %d unrecoverable JSONL line(s): %s", len(unrecoverable), strings.Join(unrecoverable, "; "))
		}
		repaired = bytes.Join(out, []byte("\n"))
		strategy = "recovery_repaired"
	}

	recoveredRows, err := countJSONRecords(repaired, kind)
	if err != nil {
		return Result{}, err
	}
	sourceRows = recoveredRows

	tmp, err := writeTempJSON(repaired)
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(tmp)

	format := "array"
	if kind != "array" {
		format = "newline_delimited"
	}
	sql := fmt.Sprintf(`CREATE TABLE "%s" AS SELECT * FROM read_json_auto('%s', format='%s')`, tableName, escapeLiteral(tmp), format)
	if err := sess.ExecUnchecked(ctx, sql); err != nil {
		return Result{}, &errs.AtomicLoadError{Message: "recovery load failed", SourceRows: sourceRows, ParseStrategy: strategy, Cause: err}
	}
	sess.RegisterTable(tableName, engine.TableInfo{SourcePath: tmp, SourceFormat: "JSON", SourceRowCount: sourceRows})

	mapping, err := normalizeColumns(ctx, sess, tableName)
	if err != nil {
		return Result{}, err
	}

	if err := checkAtomicity(ctx, sess, tableName, sourceRows, 0, strategy); err != nil {
		return Result{}, err
	}

	loaded, err := sess.RowCount(ctx, tableName)
	if err != nil {
		return Result{}, err
	}
	return Result{
		TableName:      tableName,
		SourceRowCount: sourceRows,
		LoadedRowCount: loaded,
		ParseStrategy:  strategy,
		ColumnsRenamed: mapping,
	}, nil
}

var (
	c0Controls      = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
	trailingComma   = regexp.MustCompile(`,(\s*[\]}])`)
	singleQuotedKey = regexp.MustCompile(`'([^'\\]*)'`)
)

// repairJSON applies the heuristics of spec.md §4.G to a copy of data:
// strip BOM, strip C0 controls (except \n\r\t), remove trailing commas,
// convert single-quoted tokens to double-quoted.
func repairJSON(data []byte) []byte {
	s := string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	s = c0Controls.ReplaceAllString(s, "")
	s = trailingComma.ReplaceAllString(s, "$1")
	s = singleQuotedKey.ReplaceAllString(s, `"$1"`)
	return []byte(s)
}

func countJSONRecords(data []byte, kind string) (int64, error) {
	if kind == "array" {
		if !jsonutil.IsStructurallyValid(data) {
			// Can't count precisely yet; the recovery path's own parse
			// will re-derive this once repaired. Approximate with 0 so
			// atomicity checking happens against the post-repair count.
			return 0, nil
		}
		var arr []jsonutil.RawMessage
		if err := jsonutil.Unmarshal(data, &arr); err != nil {
			return 0, nil
		}
		return int64(len(arr)), nil
	}

	var count int64
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			count++
		}
	}
	return count, nil
}

func writeTempJSON(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "cleanroom-json-repaired-*.json")
	if err != nil {
		return "", fmt.Errorf("loader: failed to create temp file: %w", err)
	}
	defer tmp.Close()
	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("loader: failed to write temp file: %w", err)
	}
	return tmp.Name(), nil
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
