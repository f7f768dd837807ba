package checks

import (
	"fmt"

	"github.com/doeshing/spechealth/internal/domain"
)

// findings accumulates the messages of one check run and turns them into a result.
type findings struct {
	errors    []string
	warnings  []string
	successes []string
	skipped   bool
	extra     map[string]any
}

func newFindings() *findings {
	return &findings{
		errors:    []string{},
		warnings:  []string{},
		successes: []string{},
		extra:     map[string]any{},
	}
}

func (f *findings) fail(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *findings) warn(format string, args ...any) {
	f.warnings = append(f.warnings, fmt.Sprintf(format, args...))
}

func (f *findings) ok(format string, args ...any) {
	f.successes = append(f.successes, fmt.Sprintf(format, args...))
}

func (f *findings) set(key string, value any) {
	f.extra[key] = value
}

// result picks the status from what was recorded: any error fails, any
// warning warns, an explicit skip with nothing else skips.
func (f *findings) result(id, subject string) (domain.CheckResult, error) {
	var (
		status  domain.CheckStatus
		message string
	)
	switch {
	case len(f.errors) > 0:
		status = domain.StatusFail
		message = fmt.Sprintf("%s: %d error(s), %d warning(s)", subject, len(f.errors), len(f.warnings))
	case len(f.warnings) > 0:
		status = domain.StatusWarn
		message = fmt.Sprintf("%s: %d warning(s)", subject, len(f.warnings))
	case f.skipped:
		status = domain.StatusSkip
		message = fmt.Sprintf("%s: skipped", subject)
	default:
		status = domain.StatusPass
		message = fmt.Sprintf("%s: all checks passed", subject)
	}

	details := map[string]any{
		"errors":   f.errors,
		"warnings": f.warnings,
		"success":  f.successes,
	}
	for k, v := range f.extra {
		details[k] = v
	}
	return domain.NewResult(id, status, message, details)
}

// single builds a one-message result, used for early exits.
func single(id string, status domain.CheckStatus, message string) (domain.CheckResult, error) {
	return domain.NewResult(id, status, message, nil)
}
