package domain

import "time"

// ReportErrorOrchestration marks a failure of the run itself rather than of a check.
const ReportErrorOrchestration = "orchestration"

// ProviderInfo describes the repository source a run inspected.
type ProviderInfo struct {
	Type     string `json:"type"`
	RepoPath string `json:"repoPath,omitempty"`
}

// ReportError is present on a report only when orchestration itself failed.
type ReportError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Report is the output of one orchestration run.
type Report struct {
	RunID     string        `json:"runId"`
	Results   []CheckResult `json:"results"`
	Summary   ReportSummary `json:"summary"`
	Timestamp time.Time     `json:"timestamp"`
	Provider  ProviderInfo  `json:"provider"`
	Error     *ReportError  `json:"error,omitempty"`
}

// Degraded reports whether the run failed to complete.
func (r Report) Degraded() bool {
	return r.Error != nil
}

// ExitCode maps the report to a process exit status: 0 clean, 1 errors, 2 warnings only.
func (r Report) ExitCode() int {
	switch {
	case r.Error != nil, r.Summary.HasErrors:
		return ExitCodeErrors
	case r.Summary.HasWarnings:
		return ExitCodeWarnings
	default:
		return ExitCodeClean
	}
}
