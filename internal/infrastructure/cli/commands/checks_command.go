package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doeshing/spechealth/internal/app"
	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/infrastructure/cli/helpers"
)

// checkListing is the JSON shape of `checks --format json`.
type checkListing struct {
	Checks  []checkInfo      `json:"checks"`
	Summary registry.Summary `json:"summary"`
}

type checkInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Priority     int      `json:"priority"`
	Dependencies []string `json:"dependencies"`
	Enabled      bool     `json:"enabled"`
}

// NewChecksCommand creates the checks command.
func NewChecksCommand(container ContainerFunc) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "checks",
		Short: "List registered health checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container()
			if err != nil {
				return err
			}
			return listChecks(cmd.OutOrStdout(), c, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", FormatText, "Output format: text or json")
	return cmd
}

func listChecks(out io.Writer, c *app.Container, format string) error {
	listing := checkListing{Summary: c.Registry.Summary()}
	for _, meta := range orderedMetadata(c.Registry) {
		deps := meta.Dependencies
		if deps == nil {
			deps = []string{}
		}
		listing.Checks = append(listing.Checks, checkInfo{
			ID:           meta.ID,
			Name:         meta.Name,
			Description:  meta.Description,
			Category:     meta.Category,
			Priority:     meta.Priority,
			Dependencies: deps,
			Enabled:      meta.Enabled,
		})
	}

	switch format {
	case FormatJSON:
		return helpers.RenderJSON(out, listing)
	case FormatText, "":
	default:
		return fmt.Errorf(ErrUnknownFormat, format)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tPRIORITY\tSTATUS\tDEPENDS ON")
	for _, info := range listing.Checks {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			info.ID, info.Category, info.Priority,
			helpers.FormatEnabledStatus(info.Enabled),
			strings.Join(info.Dependencies, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	s := listing.Summary
	fmt.Fprintf(out, "\n%d checks (%d enabled, %d disabled)\n", s.Total, s.Enabled, s.Disabled)
	return nil
}

// orderedMetadata lists every check, disabled ones included, in (priority, id) order.
func orderedMetadata(reg *registry.Registry) []registry.CheckMetadata {
	var metas []registry.CheckMetadata
	for _, category := range reg.Categories() {
		metas = append(metas, reg.ByCategory(category)...)
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].Priority != metas[j].Priority {
			return metas[i].Priority < metas[j].Priority
		}
		return metas[i].ID < metas[j].ID
	})
	return metas
}
