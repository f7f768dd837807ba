package helpers

import (
	"fmt"
	"strings"
)

// ExitError carries a non-zero process exit code without an error message:
// the command already printed everything the user needs.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// SplitAndTrimCSV splits a comma-separated value and removes blanks.
func SplitAndTrimCSV(input string) []string {
	var values []string
	for _, part := range strings.Split(input, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

// NormalizeList trims every entry of a flag list, drops blanks and keeps the
// result non-nil so an explicit empty list stays distinguishable from unset.
func NormalizeList(values []string) []string {
	out := []string{}
	for _, v := range values {
		out = append(out, SplitAndTrimCSV(v)...)
	}
	return out
}

// FormatEnabledStatus renders a boolean as enabled/disabled.
func FormatEnabledStatus(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
