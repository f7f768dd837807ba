package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/spechealth/internal/domain"
)

// TimestampFormat is used for every human-readable timestamp.
const TimestampFormat = "2006-01-02 15:04:05"

// RenderText prints the report in a friendly, ASCII-only format. Verbose
// output also lists what each check found to be in order.
func RenderText(out io.Writer, report domain.Report, verbose bool) {
	fmt.Fprintf(out, "Health check report (%s", report.Provider.Type)
	if report.Provider.RepoPath != "" {
		fmt.Fprintf(out, ": %s", report.Provider.RepoPath)
	}
	fmt.Fprintln(out, ")")
	fmt.Fprintf(out, "Run %s at %s, took %dms\n\n",
		report.RunID,
		report.Summary.ExecutionDate.Local().Format(TimestampFormat),
		report.Summary.ExecutionTimeMS)

	width := 0
	for _, res := range report.Results {
		if len(res.Check) > width {
			width = len(res.Check)
		}
	}
	for _, res := range report.Results {
		fmt.Fprintf(out, "[%-4s] %-*s  %s\n", strings.ToUpper(string(res.Status)), width, res.Check, res.Message)
		for _, msg := range StringList(res.Details["errors"]) {
			fmt.Fprintf(out, "         error: %s\n", msg)
		}
		for _, msg := range StringList(res.Details["warnings"]) {
			fmt.Fprintf(out, "         warn:  %s\n", msg)
		}
		if verbose {
			for _, msg := range StringList(res.Details["success"]) {
				fmt.Fprintf(out, "         ok:    %s\n", msg)
			}
		}
	}
	if len(report.Results) == 0 {
		fmt.Fprintln(out, "No checks ran.")
	}

	s := report.Summary
	fmt.Fprintf(out, "\n%d checks: %d passed, %d failed, %d warnings, %d skipped. Score %d%%\n",
		s.Total, s.Passed, s.Failed, s.Warnings, s.Skipped, s.Score)
	if report.Error != nil {
		fmt.Fprintf(out, "Run failed (%s): %s\n", report.Error.Type, report.Error.Message)
	}
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// StringList reads a details entry holding strings, either as produced by a
// check ([]string) or after a JSON round trip ([]interface{}).
func StringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
