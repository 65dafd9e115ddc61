// Package colname implements the Column Namer of spec.md §4.C: normalize
// arbitrary labels into lowercase snake_case with collision resolution.
// Grounded on huandu/xstrings, which rides along in the teacher's go.mod
// unused by any teacher file — its ToSnakeCase already expands
// camel/Pascal-case boundaries the way step one of §4.C requires, so it
// is adopted here instead of hand-rolling boundary detection.
package colname

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/huandu/xstrings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize applies the ordered rule set of spec.md §4.C to a single
// label. It is idempotent: calling it again on its own output is a no-op.
func Normalize(label string) string {
	s := xstrings.ToSnakeCase(label)
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	s = collapseUnderscores(s)

	if s == "" {
		s = "unnamed"
	}
	if len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

func collapseUnderscores(s string) string {
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

// Deduplicate normalizes every label in order and appends _1, _2, … to
// duplicates in order of occurrence, per spec.md §4.C.
func Deduplicate(labels []string) []string {
	seen := make(map[string]int, len(labels))
	out := make([]string, len(labels))
	for i, label := range labels {
		name := Normalize(label)
		count := seen[name]
		seen[name] = count + 1
		if count == 0 {
			out[i] = name
		} else {
			out[i] = name + "_" + strconv.Itoa(count)
		}
	}
	return out
}

// RenameMapping returns the minimal mapping from original label to final
// name, omitting entries where normalization/deduplication was a no-op.
func RenameMapping(labels []string) map[string]string {
	final := Deduplicate(labels)
	mapping := make(map[string]string)
	for i, original := range labels {
		if original != final[i] {
			mapping[original] = final[i]
		}
	}
	return mapping
}
