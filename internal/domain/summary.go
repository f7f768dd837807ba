package domain

import (
	"math"
	"time"
)

// Summary aggregates result counts for a run.
type Summary struct {
	Total       int  `json:"total"`
	Passed      int  `json:"passed"`
	Failed      int  `json:"failed"`
	Warnings    int  `json:"warnings"`
	Skipped     int  `json:"skipped"`
	Score       int  `json:"score"`
	HasErrors   bool `json:"hasErrors"`
	HasWarnings bool `json:"hasWarnings"`
}

// CalculateSummary counts results by status. Results carrying an unknown
// status are counted as failures so the four counters always add up to Total.
func CalculateSummary(results []CheckResult) Summary {
	var s Summary
	for _, r := range results {
		s.Total++
		switch r.Status {
		case StatusPass:
			s.Passed++
		case StatusWarn:
			s.Warnings++
		case StatusSkip:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.Score = int(math.Round(float64(s.Passed) / float64(s.Total) * 100))
	}
	s.HasErrors = s.Failed > 0
	s.HasWarnings = s.Warnings > 0
	return s
}

// ReportSummary is a Summary plus execution metadata.
type ReportSummary struct {
	Summary
	ExecutionTimeMS int64     `json:"executionTimeMs"`
	ExecutionDate   time.Time `json:"executionDate"`
}
