package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/spechealth/internal/infrastructure/cli/helpers"
	"github.com/doeshing/spechealth/internal/version"
)

// NewVersionCommand creates the version command. It never builds the
// container, so it works with a broken configuration.
func NewVersionCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show spechealth build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd.OutOrStdout(), version.Get(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", FormatText, "Output format: text or json")
	return cmd
}

func printVersion(out io.Writer, info version.Info, format string) error {
	switch format {
	case FormatJSON:
		return helpers.RenderJSON(out, info)
	case FormatText, "":
	default:
		return fmt.Errorf(ErrUnknownFormat, format)
	}

	fmt.Fprintf(out, "spechealth %s (%s)\n", info.Version, info.Platform)
	if info.Commit != "" {
		fmt.Fprintf(out, "  commit  %s\n", info.Commit)
	}
	if info.BuildDate != "" {
		fmt.Fprintf(out, "  built   %s\n", info.BuildDate)
	}
	fmt.Fprintf(out, "  go      %s\n", info.GoVersion)
	return nil
}
