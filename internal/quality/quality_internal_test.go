package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datagruntio/cleanroom/internal/model"
)

func TestNullAnalysisFindingsThresholds(t *testing.T) {
	summary := []columnSummary{
		{name: "low_null", nullRate: 0.2},
		{name: "warn_null", nullRate: 0.6},
		{name: "critical_null", nullRate: 0.95},
	}
	findings := nullAnalysisFindings(summary)
	require.Len(t, findings, 2)

	byColumn := make(map[string]model.Finding, len(findings))
	for _, f := range findings {
		byColumn[f.Columns[0]] = f
	}

	warn, ok := byColumn["warn_null"]
	require.True(t, ok)
	assert.Equal(t, model.SeverityWarning, warn.Severity)

	crit, ok := byColumn["critical_null"]
	require.True(t, ok)
	assert.Equal(t, model.SeverityCritical, crit.Severity)

	_, lowPresent := byColumn["low_null"]
	assert.False(t, lowPresent, "columns at or below 0.5 null rate should not be flagged")
}

func TestConstantColumnsFinding(t *testing.T) {
	summary := []columnSummary{
		{name: "status", distinctApprox: 1},
		{name: "region", distinctApprox: 4},
		{name: "flag", distinctApprox: 0},
	}
	f := constantColumnsFinding(summary)
	require.NotNil(t, f)
	assert.Equal(t, model.CategoryConstantColumns, f.Category)
	assert.ElementsMatch(t, []string{"status", "flag"}, f.Columns)
}

func TestConstantColumnsFindingNilWhenNoneConstant(t *testing.T) {
	summary := []columnSummary{{name: "region", distinctApprox: 4}}
	assert.Nil(t, constantColumnsFinding(summary))
}

func TestFilterVarchar(t *testing.T) {
	summary := []columnSummary{
		{name: "name", columnType: "VARCHAR"},
		{name: "amount", columnType: "DOUBLE"},
		{name: "code", columnType: "varchar"},
	}
	assert.Equal(t, []string{"name", "code"}, filterVarchar(summary))
}

func TestIsNumericType(t *testing.T) {
	for _, typ := range []string{"BIGINT", "double", "Decimal", "REAL"} {
		assert.True(t, isNumericType(typ), "expected %q to be numeric", typ)
	}
	for _, typ := range []string{"VARCHAR", "DATE", "BOOLEAN"} {
		assert.False(t, isNumericType(typ), "expected %q to be non-numeric", typ)
	}
}
