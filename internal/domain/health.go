package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// CheckStatus indicates a check outcome.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusFail CheckStatus = "fail"
	StatusWarn CheckStatus = "warn"
	StatusSkip CheckStatus = "skip"
)

// ErrorResultPrefix starts the message of every result synthesized from an error.
const ErrorResultPrefix = "Error during health check: "

// Statuses lists the closed set of check outcomes.
func Statuses() []CheckStatus {
	return []CheckStatus{StatusPass, StatusFail, StatusWarn, StatusSkip}
}

// Valid reports whether s is one of the four known statuses.
func (s CheckStatus) Valid() bool {
	switch s {
	case StatusPass, StatusFail, StatusWarn, StatusSkip:
		return true
	default:
		return false
	}
}

// CheckResult captures the outcome of one check invocation.
type CheckResult struct {
	Check     string         `json:"check"`
	Status    CheckStatus    `json:"status"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details"`
}

// NewResult builds a validated result stamped with the current time.
func NewResult(check string, status CheckStatus, message string, details map[string]any) (CheckResult, error) {
	if strings.TrimSpace(check) == "" {
		return CheckResult{}, &ValidationError{Field: "check", Reason: "must be a non-empty string"}
	}
	if !status.Valid() {
		return CheckResult{}, &ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("%q is not one of %v", status, Statuses()),
		}
	}
	if strings.TrimSpace(message) == "" {
		return CheckResult{}, &ValidationError{Field: "message", Reason: "must be a non-empty string"}
	}
	if details == nil {
		details = map[string]any{}
	}
	return CheckResult{
		Check:     check,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}, nil
}

// MustResult is NewResult for arguments known to be valid. It panics otherwise.
func MustResult(check string, status CheckStatus, message string, details map[string]any) CheckResult {
	res, err := NewResult(check, status, message, details)
	if err != nil {
		panic(err)
	}
	return res
}

// IsValidResult checks the shape of a result that did not come from NewResult.
func IsValidResult(r CheckResult) bool {
	if strings.TrimSpace(r.Check) == "" || strings.TrimSpace(r.Message) == "" {
		return false
	}
	if !r.Status.Valid() {
		return false
	}
	return !r.Timestamp.IsZero()
}

// NewErrorResult converts an error into a failing result.
func NewErrorResult(check string, err error, extra map[string]any) CheckResult {
	if strings.TrimSpace(check) == "" {
		check = "unknown"
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	details := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		details[k] = v
	}
	details["error"] = msg
	if err != nil && errors.GetReportableStackTrace(err) != nil {
		details["stack"] = fmt.Sprintf("%+v", err)
	}
	return CheckResult{
		Check:     check,
		Status:    StatusFail,
		Message:   ErrorResultPrefix + msg,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}
}
