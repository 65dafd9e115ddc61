package model

// OperationTag names one step of the cleaning protocol, in the fixed
// order defined by spec.md §4.J. The order here is the canonical order;
// internal/cleaning.Clean runs the steps in exactly this sequence.
type OperationTag string

const (
	OpUnknownCharReplacement OperationTag = "unknown_char_replacement"
	OpWhitespaceTrim         OperationTag = "whitespace_trim"
	OpEmptyToNull            OperationTag = "empty_to_null"
	OpNullLikeNormalization  OperationTag = "null_like_normalization"
	OpDateStandardization    OperationTag = "date_standardization"
	OpTypeCoercion           OperationTag = "type_coercion"
	OpMixedCaseNormalization OperationTag = "mixed_case_normalization"
	OpSoftDedup              OperationTag = "soft_dedup"
	OpHighNullColumnRemoval  OperationTag = "high_null_column_removal"
	OpConstantColumnRemoval  OperationTag = "constant_column_removal"
	OpPIIDetection           OperationTag = "pii_detection"
	OpPrecisionFlag          OperationTag = "numeric_precision_flag"
)

// CanonicalOrder is the fixed, twelve-step protocol order, per spec.md
// §4.J and §8 ("the sequence of operation tags ... is a subsequence of
// the canonical twelve-step order").
var CanonicalOrder = []OperationTag{
	OpUnknownCharReplacement,
	OpWhitespaceTrim,
	OpEmptyToNull,
	OpNullLikeNormalization,
	OpDateStandardization,
	OpTypeCoercion,
	OpMixedCaseNormalization,
	OpSoftDedup,
	OpHighNullColumnRemoval,
	OpConstantColumnRemoval,
	OpPIIDetection,
	OpPrecisionFlag,
}

// Operation is one entry in the cleaning report's operations list.
type Operation struct {
	Tag     OperationTag `json:"operation"`
	Columns []string     `json:"columns,omitempty"`
	Metrics map[string]any `json:"metrics,omitempty"`
}

// PIIFinding records one column flagged by the PII classifier (spec.md §4.J.11).
type PIIFinding struct {
	Column         string  `json:"column"`
	PIIType        string  `json:"pii_type"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

// IdentifierColumn records a text column preserved because of leading
// zeros (spec.md §4.J.6, glossary "Identifier column").
type IdentifierColumn struct {
	Column      string `json:"column"`
	Pattern     string `json:"pattern"`
	PreservedAs string `json:"preserved_as"`
}

// PrecisionFlag records a numeric column whose observed decimal-place
// counts vary (spec.md §4.J.12).
type PrecisionFlag struct {
	Column        string `json:"column"`
	MinDecimals   int    `json:"min_decimals"`
	MaxDecimals   int    `json:"max_decimals"`
}

// IsSubsequenceOfCanonicalOrder reports whether tags appear in the same
// relative order as CanonicalOrder, the invariant tested in spec.md §8.
func IsSubsequenceOfCanonicalOrder(tags []OperationTag) bool {
	idx := 0
	for _, t := range tags {
		found := false
		for idx < len(CanonicalOrder) {
			if CanonicalOrder[idx] == t {
				found = true
				idx++
				break
			}
			idx++
		}
		if !found {
			return false
		}
	}
	return true
}
