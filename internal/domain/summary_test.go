package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/spechealth/internal/domain"
)

func results(statuses ...domain.CheckStatus) []domain.CheckResult {
	out := make([]domain.CheckResult, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, domain.CheckResult{Check: string(rune('a' + i)), Status: s, Message: "m"})
	}
	return out
}

// TestCalculateSummary tests aggregate counts and score
func TestCalculateSummary(t *testing.T) {
	tests := []struct {
		name string
		in   []domain.CheckResult
		want domain.Summary
	}{
		{
			name: "empty",
			in:   nil,
			want: domain.Summary{},
		},
		{
			name: "half passing",
			in:   results(domain.StatusPass, domain.StatusPass, domain.StatusFail, domain.StatusFail),
			want: domain.Summary{Total: 4, Passed: 2, Failed: 2, Score: 50, HasErrors: true},
		},
		{
			name: "mixed",
			in:   results(domain.StatusPass, domain.StatusWarn, domain.StatusSkip),
			want: domain.Summary{Total: 3, Passed: 1, Warnings: 1, Skipped: 1, Score: 33, HasWarnings: true},
		},
		{
			name: "rounds up",
			in:   results(domain.StatusPass, domain.StatusPass, domain.StatusWarn),
			want: domain.Summary{Total: 3, Passed: 2, Warnings: 1, Score: 67, HasWarnings: true},
		},
		{
			name: "unknown status counts as failure",
			in:   results(domain.StatusPass, "bogus"),
			want: domain.Summary{Total: 2, Passed: 1, Failed: 1, Score: 50, HasErrors: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.CalculateSummary(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.in), got.Total)
			assert.Equal(t, got.Total, got.Passed+got.Failed+got.Warnings+got.Skipped)
		})
	}
}

func TestCalculateSummaryDoesNotMutateInput(t *testing.T) {
	in := results(domain.StatusFail, domain.StatusPass)
	snapshot := append([]domain.CheckResult(nil), in...)
	domain.CalculateSummary(in)
	assert.Equal(t, snapshot, in)
}

func TestReportExitCode(t *testing.T) {
	clean := domain.Report{}
	assert.Equal(t, domain.ExitCodeClean, clean.ExitCode())

	warn := domain.Report{Summary: domain.ReportSummary{Summary: domain.Summary{HasWarnings: true}}}
	assert.Equal(t, domain.ExitCodeWarnings, warn.ExitCode())

	failing := domain.Report{Summary: domain.ReportSummary{Summary: domain.Summary{HasErrors: true, HasWarnings: true}}}
	assert.Equal(t, domain.ExitCodeErrors, failing.ExitCode())

	degraded := domain.Report{Error: &domain.ReportError{Message: "boom", Type: domain.ReportErrorOrchestration}}
	assert.True(t, degraded.Degraded())
	assert.Equal(t, domain.ExitCodeErrors, degraded.ExitCode())
}
