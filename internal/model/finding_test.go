package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datagruntio/cleanroom/internal/model"
)

func TestCountSeverities(t *testing.T) {
	findings := []model.Finding{
		{Severity: model.SeverityInfo},
		{Severity: model.SeverityWarning},
		{Severity: model.SeverityWarning},
		{Severity: model.SeverityCritical},
	}
	counts := model.CountSeverities(findings)
	assert.Equal(t, 1, counts.Info)
	assert.Equal(t, 2, counts.Warning)
	assert.Equal(t, 1, counts.Critical)
}

func TestOverallStatusPrecedence(t *testing.T) {
	cases := []struct {
		name   string
		counts model.SeverityCounts
		want   string
	}{
		{"no findings", model.SeverityCounts{}, "pass"},
		{"only info", model.SeverityCounts{Info: 3}, "pass"},
		{"warning wins over info", model.SeverityCounts{Info: 2, Warning: 1}, "warn"},
		{"critical wins over warning", model.SeverityCounts{Warning: 5, Critical: 1}, "fail"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.counts.OverallStatus())
		})
	}
}
