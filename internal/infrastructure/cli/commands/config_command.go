package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/spechealth/internal/app"
	configapp "github.com/doeshing/spechealth/internal/application/config"
	configinfra "github.com/doeshing/spechealth/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(container ContainerFunc, configPath func() string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect spechealth configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container()
			if err != nil {
				return err
			}
			return showConfiguration(cmd.OutOrStdout(), c)
		},
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration (file plus environment overrides)",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := container()
				if err != nil {
					return err
				}
				return showConfiguration(cmd.OutOrStdout(), c)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), configinfra.NewFileLoader(configPath()).Path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration file",
			RunE: func(cmd *cobra.Command, args []string) error {
				return validateConfiguration(cmd.Context(), cmd.OutOrStdout(), configinfra.NewFileLoader(configPath()))
			},
		},
		&cobra.Command{
			Use:   "diff",
			Short: "Show diff versus default configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := container()
				if err != nil {
					return err
				}
				return showConfigurationDiff(cmd.OutOrStdout(), c)
			},
		},
	)

	return configCmd
}

// showConfiguration prints the effective configuration as YAML
func showConfiguration(out io.Writer, c *app.Container) error {
	raw, err := yaml.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = out.Write(raw)
	return err
}

// validateConfiguration loads and validates without building the container,
// so an invalid file can be diagnosed.
func validateConfiguration(ctx context.Context, out io.Writer, loader *configinfra.FileLoader) error {
	cfg, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Fprintln(out, MsgConfigurationValid)
	return nil
}

// showConfigurationDiff shows the difference between current and default configuration
func showConfigurationDiff(out io.Writer, c *app.Container) error {
	defaults, err := configinfra.Defaults()
	if err != nil {
		return err
	}
	diff := cmp.Diff(defaults, c.Config)
	if diff == "" {
		fmt.Fprintln(out, MsgNoDifferencesFromDefault)
		return nil
	}
	fmt.Fprintln(out, diff)
	return nil
}
