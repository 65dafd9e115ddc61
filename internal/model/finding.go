package model

// FindingCategory is the tagged-union discriminator for quality findings,
// per spec.md §3 ("Finding"). Go has no sum types, so Finding carries at
// most one populated *Detail field selected by Category — the idiomatic
// approximation of the source's looser dictionary-of-findings shape.
type FindingCategory string

const (
	CategoryNullAnalysis    FindingCategory = "null_analysis"
	CategoryNullLikeStrings FindingCategory = "null_like_strings"
	CategoryWhitespace      FindingCategory = "whitespace"
	CategoryTypeAnalysis    FindingCategory = "type_analysis"
	CategoryConstantColumns FindingCategory = "constant_columns"
	CategoryDuplicates      FindingCategory = "duplicates"
	CategoryOutliers        FindingCategory = "outliers"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SuggestedCast is the type a type_analysis finding recommends, or empty
// when none qualifies.
type SuggestedCast string

const (
	CastNone    SuggestedCast = ""
	CastDouble  SuggestedCast = "DOUBLE"
	CastDate    SuggestedCast = "DATE"
	CastBoolean SuggestedCast = "BOOLEAN"
)

// NullAnalysisDetail backs CategoryNullAnalysis findings (spec.md §4.I.1).
type NullAnalysisDetail struct {
	NullRate float64 `json:"null_rate"`
}

// TypeAnalysisDetail backs CategoryTypeAnalysis findings (spec.md §4.I.2).
type TypeAnalysisDetail struct {
	DoubleCastableRate  float64       `json:"castable_double_rate"`
	DateCastableRate    float64       `json:"castable_date_rate"`
	BooleanCastableRate float64       `json:"castable_boolean_rate"`
	LeadingZeroCount    int64         `json:"leading_zero_count"`
	SuggestedCast       SuggestedCast `json:"suggested_cast,omitempty"`
}

// NullLikeStringsDetail backs CategoryNullLikeStrings findings (spec.md §4.I.3).
type NullLikeStringsDetail struct {
	Count       int64            `json:"count"`
	ValueCounts map[string]int64 `json:"value_counts,omitempty"`
}

// WhitespaceDetail backs CategoryWhitespace findings (spec.md §4.I.3).
type WhitespaceDetail struct {
	Count int64 `json:"count"`
}

// DuplicatesDetail backs CategoryDuplicates findings (spec.md §4.I.4).
type DuplicatesDetail struct {
	Count int64 `json:"count"`
}

// OutliersDetail backs CategoryOutliers findings (spec.md §4.I.5).
type OutliersDetail struct {
	Count      int64   `json:"count"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// Finding is one observation produced by the quality scanner. At most one
// of the Detail fields is populated, selected by Category; constant-columns
// findings carry none. Columns lists
// every column the finding concerns — one for most categories, many for
// constant-columns, none for the table-wide duplicates finding.
type Finding struct {
	Category FindingCategory `json:"category"`
	Severity Severity        `json:"severity"`
	Columns  []string        `json:"columns,omitempty"`

	NullAnalysis    *NullAnalysisDetail    `json:"null_analysis,omitempty"`
	TypeAnalysis    *TypeAnalysisDetail    `json:"type_analysis,omitempty"`
	NullLikeStrings *NullLikeStringsDetail `json:"null_like_strings,omitempty"`
	Whitespace      *WhitespaceDetail      `json:"whitespace,omitempty"`
	Duplicates      *DuplicatesDetail      `json:"duplicates,omitempty"`
	Outliers        *OutliersDetail        `json:"outliers,omitempty"`
}

// SeverityCounts tallies findings by severity, used to derive overall_status.
type SeverityCounts struct {
	Info     int `json:"info"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
}

func CountSeverities(findings []Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range findings {
		switch f.Severity {
		case SeverityInfo:
			c.Info++
		case SeverityWarning:
			c.Warning++
		case SeverityCritical:
			c.Critical++
		}
	}
	return c
}

// OverallStatus derives the quality report's pass/warn/fail verdict, per
// spec.md §8: critical>0 -> fail, else warning>0 -> warn, else pass.
func (c SeverityCounts) OverallStatus() string {
	switch {
	case c.Critical > 0:
		return "fail"
	case c.Warning > 0:
		return "warn"
	default:
		return "pass"
	}
}
