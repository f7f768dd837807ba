package commands

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doeshing/spechealth/internal/app"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/infrastructure/cli/helpers"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(container ContainerFunc) *cobra.Command {
	var (
		limit    int
		clearAll bool
		format   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent health check runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container()
			if err != nil {
				return err
			}
			if clearAll {
				return clearHistory(cmd.OutOrStdout(), c)
			}
			return listHistoryEntries(cmd.OutOrStdout(), c, limit, format)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", domain.DefaultHistoryLimit, "Max entries to show (0 = all)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all recorded runs")
	cmd.Flags().StringVarP(&format, "format", "o", FormatText, "Output format: text or json")
	return cmd
}

// listHistoryEntries lists recent runs, newest first
func listHistoryEntries(out io.Writer, c *app.Container, limit int, format string) error {
	if c.HistoryStore == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	records, err := c.HistoryStore.Records(limit)
	if err != nil {
		return fmt.Errorf("failed to retrieve history records: %w", err)
	}

	switch format {
	case FormatJSON:
		if records == nil {
			records = []domain.HistoryRecord{}
		}
		return helpers.RenderJSON(out, records)
	case FormatText, "":
	default:
		return fmt.Errorf(ErrUnknownFormat, format)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSCORE\tPASS\tFAIL\tWARN\tSKIP\tMS\tREPOSITORY")
	for _, rec := range records {
		repo := rec.RepoPath
		if rec.OrchestrationError != "" {
			repo += " (run failed: " + rec.OrchestrationError + ")"
		}
		fmt.Fprintf(tw, "%s\t%d%%\t%d\t%d\t%d\t%d\t%d\t%s\n",
			rec.Timestamp.Local().Format(helpers.TimestampFormat),
			rec.Score, rec.Passed, rec.Failed, rec.Warnings, rec.Skipped,
			rec.ExecutionTimeMS, repo)
	}
	return tw.Flush()
}

// clearHistory removes every recorded run
func clearHistory(out io.Writer, c *app.Container) error {
	if c.HistoryStore == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}
	if err := c.HistoryStore.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintf(out, "History cleared (%s)\n", c.HistoryStore.Path())
	return nil
}
