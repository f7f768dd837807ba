package domain

import "time"

// HistoryRecord summarises one stored run.
type HistoryRecord struct {
	RunID              string    `json:"run_id"`
	Timestamp          time.Time `json:"timestamp"`
	RepoPath           string    `json:"repo_path"`
	ProviderType       string    `json:"provider_type"`
	Total              int       `json:"total"`
	Passed             int       `json:"passed"`
	Failed             int       `json:"failed"`
	Warnings           int       `json:"warnings"`
	Skipped            int       `json:"skipped"`
	Score              int       `json:"score"`
	ExecutionTimeMS    int64     `json:"execution_time_ms"`
	OrchestrationError string    `json:"orchestration_error,omitempty"`
}

// NewHistoryRecord flattens a report for storage.
func NewHistoryRecord(r Report) HistoryRecord {
	rec := HistoryRecord{
		RunID:           r.RunID,
		Timestamp:       r.Timestamp,
		RepoPath:        r.Provider.RepoPath,
		ProviderType:    r.Provider.Type,
		Total:           r.Summary.Total,
		Passed:          r.Summary.Passed,
		Failed:          r.Summary.Failed,
		Warnings:        r.Summary.Warnings,
		Skipped:         r.Summary.Skipped,
		Score:           r.Summary.Score,
		ExecutionTimeMS: r.Summary.ExecutionTimeMS,
	}
	if r.Error != nil {
		rec.OrchestrationError = r.Error.Message
	}
	return rec
}

// CacheEntry stores a cached URL probe outcome.
type CacheEntry struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Reachable  bool      `json:"reachable"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
