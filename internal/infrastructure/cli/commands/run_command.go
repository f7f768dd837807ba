package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/spechealth/internal/app"
	"github.com/doeshing/spechealth/internal/application/checks"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/infrastructure/cli/helpers"
	"github.com/doeshing/spechealth/internal/infrastructure/provider"
)

type runFlags struct {
	checks              []string
	categories          []string
	parallel            bool
	timeout             time.Duration
	continueOnError     bool
	maxConcurrency      int
	respectDependencies bool
	format              string
	noHistory           bool
	offline             bool
	verbose             bool
	progress            bool
}

// NewRunCommand creates the run command.
func NewRunCommand(container ContainerFunc) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [repo-path]",
		Short: "Run health checks against a spec-up-t repository",
		Long: "Run health checks against a spec-up-t repository (default: the current directory).\n" +
			"Exit status is 0 when every check passed or was skipped, 1 when a check failed\n" +
			"or the run itself failed, and 2 when there were only warnings.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container()
			if err != nil {
				return err
			}
			repoPath := "."
			if len(args) == 1 {
				repoPath = args[0]
			}
			return runHealthChecks(cmd, c, repoPath, flags)
		},
	}

	cmd.Flags().StringSliceVar(&flags.checks, "checks", nil, "Run only these check ids (comma separated)")
	cmd.Flags().StringSliceVar(&flags.categories, "categories", nil, "Run only checks in these categories (comma separated)")
	cmd.Flags().BoolVar(&flags.parallel, "parallel", false, "Run checks concurrently")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", domain.DefaultCheckTimeout, "Per-check timeout")
	cmd.Flags().BoolVar(&flags.continueOnError, "continue-on-error", true, "Keep running after a failed check (sequential mode)")
	cmd.Flags().IntVar(&flags.maxConcurrency, "max-concurrency", 0, "Bound parallel checks (0 = unbounded)")
	cmd.Flags().BoolVar(&flags.respectDependencies, "respect-dependencies", false, "Order checks after the checks they depend on")
	cmd.Flags().StringVarP(&flags.format, "format", "o", "", "Output format: text or json (default from config)")
	cmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "Do not record this run in history")
	cmd.Flags().BoolVar(&flags.offline, "offline", false, "Skip network probes of external specs")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Also list passing findings")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "Show a spinner on stderr while checks run")
	return cmd
}

func runHealthChecks(cmd *cobra.Command, c *app.Container, repoPath string, flags runFlags) error {
	format := flags.format
	if format == "" {
		format = c.Config.Output.Format
	}
	format = strings.ToLower(format)
	if format != FormatText && format != FormatJSON && format != "" {
		return fmt.Errorf(ErrUnknownFormat, format)
	}

	p, err := provider.NewLocal(repoPath)
	if err != nil {
		return err
	}

	opts := app.RunOptions(c.Config)
	changed := cmd.Flags().Changed
	if changed("checks") {
		opts.Checks = helpers.NormalizeList(flags.checks)
	}
	if changed("categories") {
		opts.Categories = helpers.NormalizeList(flags.categories)
	}
	if changed("parallel") {
		opts.Parallel = flags.parallel
	}
	if changed("timeout") {
		opts.Timeout = flags.timeout
	}
	if changed("continue-on-error") {
		continueOnError := flags.continueOnError
		opts.ContinueOnError = &continueOnError
	}
	if changed("max-concurrency") {
		opts.MaxConcurrency = flags.maxConcurrency
	}
	if changed("respect-dependencies") {
		opts.RespectDependencies = flags.respectDependencies
	}
	opts.CheckOptions = map[string]any{checks.OptionOffline: flags.offline}

	var spinner *helpers.Spinner
	if flags.progress {
		spinner = helpers.NewSpinner(cmd.ErrOrStderr(), "running health checks")
		spinner.Start()
	}
	report := c.Orchestrator.Run(cmd.Context(), p, opts)
	if spinner != nil {
		spinner.Stop()
	}

	if c.HistoryStore != nil && !flags.noHistory {
		recordHistory(c, report)
	}

	if err := render(cmd.OutOrStdout(), format, report, flags.verbose); err != nil {
		return err
	}
	if code := report.ExitCode(); code != domain.ExitCodeClean {
		return &helpers.ExitError{Code: code}
	}
	return nil
}

func render(out io.Writer, format string, report domain.Report, verbose bool) error {
	if format == FormatJSON {
		return helpers.RenderJSON(out, report)
	}
	helpers.RenderText(out, report, verbose)
	return nil
}

// recordHistory stores the run summary and prunes expired records. Failures
// are logged; history never changes the outcome of a run.
func recordHistory(c *app.Container, report domain.Report) {
	if err := c.HistoryStore.Save(domain.NewHistoryRecord(report)); err != nil {
		c.Logger.Warn("failed to record run history", map[string]interface{}{"error": err.Error()})
		return
	}
	if days := c.Config.History.RetainDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		if _, err := c.HistoryStore.Prune(cutoff); err != nil {
			c.Logger.Warn("failed to prune run history", map[string]interface{}{"error": err.Error()})
		}
	}
}

