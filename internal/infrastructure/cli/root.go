package cli

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/doeshing/spechealth/internal/app"
	"github.com/doeshing/spechealth/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command. The container is built on first
// use so that --config and --debug are honoured. The returned cleanup
// releases the container and must run on every exit path, failed commands
// included.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, func() error) {
	root, lazy := newRoot(ctx, opts)
	return root, lazy.Close
}

// lazyContainer builds the container at most once.
type lazyContainer struct {
	once      sync.Once
	container *app.Container
	err       error
}

func (l *lazyContainer) get(ctx context.Context, opts app.Options) (*app.Container, error) {
	l.once.Do(func() {
		l.container, l.err = app.BuildContainer(ctx, opts)
	})
	return l.container, l.err
}

// Close is a no-op when no command needed the container.
func (l *lazyContainer) Close() error {
	if l.container == nil {
		return nil
	}
	err := l.container.Close()
	_ = l.container.Logger.Sync()
	return err
}

func newRoot(ctx context.Context, opts Options) (*cobra.Command, *lazyContainer) {
	var (
		configPath string
		debug      bool
		lazy       = &lazyContainer{}
	)

	getContainer := func() (*app.Container, error) {
		return lazy.get(ctx, app.Options{
			Verbose:    opts.Verbose || debug,
			ConfigPath: configPath,
		})
	}

	root := &cobra.Command{
		Use:   "spechealth",
		Short: "spechealth - health checks for spec-up-t repositories",
		Long: "spechealth validates the configuration, content and generated output of a\n" +
			"spec-up-t specification repository and reports what needs fixing.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.spechealth/config.yaml, or $SPECHEALTH_CONFIG)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging on stderr")

	root.AddCommand(
		commands.NewRunCommand(getContainer),
		commands.NewChecksCommand(getContainer),
		commands.NewHistoryCommand(getContainer),
		commands.NewCacheCommand(getContainer),
		commands.NewConfigCommand(getContainer, func() string { return configPath }),
		commands.NewVersionCommand(),
	)
	return root, lazy
}
