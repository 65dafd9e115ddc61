package report_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datagruntio/cleanroom/internal/model"
	"github.com/datagruntio/cleanroom/internal/report"
)

var idPattern = regexp.MustCompile(`^dqr_[0-9a-f]{12}$`)

func TestNewIDShape(t *testing.T) {
	id := report.NewID("dqr")
	assert.Regexp(t, idPattern, id)
}

func TestNewIDIsUnique(t *testing.T) {
	a := report.NewID("dqr")
	b := report.NewID("dqr")
	assert.NotEqual(t, a, b)
}

func TestNowRFC3339(t *testing.T) {
	ts := time.Date(2026, 3, 5, 12, 30, 0, 0, time.UTC)
	got := report.NowRFC3339(ts)
	parsed, err := time.Parse(time.RFC3339, got)
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))
}

func TestBuildQualityReportStatusPass(t *testing.T) {
	rpt := report.BuildQualityReport(report.QualityReportInput{
		Findings:    []model.Finding{{Severity: model.SeverityInfo}},
		ProcessedAt: time.Now(),
	})
	assert.Equal(t, "pass", rpt.OverallStatus)
	assert.Empty(t, rpt.OverallStatusReason)
}

func TestBuildQualityReportStatusFailIncludesReason(t *testing.T) {
	rpt := report.BuildQualityReport(report.QualityReportInput{
		Findings: []model.Finding{
			{Severity: model.SeverityCritical},
			{Severity: model.SeverityCritical},
		},
		ProcessedAt: time.Now(),
	})
	assert.Equal(t, "fail", rpt.OverallStatus)
	assert.Contains(t, rpt.OverallStatusReason, "2 critical")
}

func TestBuildCleaningReportNoActionNeeded(t *testing.T) {
	rpt := report.BuildCleaningReport(report.CleaningReportInput{
		GeneratedAt: time.Now(),
	})
	assert.Equal(t, "no_action_needed", rpt.OverallStatus)
	assert.Equal(t, 0, rpt.Summary.OperationsApplied)
}

func TestBuildCleaningReportColumnDeltas(t *testing.T) {
	rpt := report.BuildCleaningReport(report.CleaningReportInput{
		BeforeColumns: 10,
		AfterColumns:  8,
		Operations:    []model.Operation{{Tag: model.OpConstantColumnRemoval}},
		GeneratedAt:   time.Now(),
	})
	assert.Equal(t, "cleaned", rpt.OverallStatus)
	assert.Equal(t, 0, rpt.Summary.ColumnsAdded)
	assert.Equal(t, 2, rpt.Summary.ColumnsRemoved)
}
