package commands

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doeshing/spechealth/internal/app"
	"github.com/doeshing/spechealth/internal/infrastructure/cli/helpers"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(container ContainerFunc) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached URL probe results",
	}

	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cached probe results",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := container()
				if err != nil {
					return err
				}
				return listCacheEntries(cmd.OutOrStdout(), c)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear cached probe results",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := container()
				if err != nil {
					return err
				}
				return clearCache(cmd.OutOrStdout(), c)
			},
		},
	)

	return cacheCmd
}

// listCacheEntries lists all cache entries
func listCacheEntries(out io.Writer, c *app.Container) error {
	if c.CacheStore == nil {
		return errors.New(ErrCacheStoreUnavailable)
	}

	entries, err := c.CacheStore.Entries()
	if err != nil {
		return fmt.Errorf("failed to retrieve cache entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoCachedProbes)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECKED\tSTATUS\tREACHABLE\tURL")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%t\t%s\n",
			entry.CreatedAt.Local().Format(helpers.TimestampFormat),
			entry.StatusCode, entry.Reachable, entry.URL)
	}
	return tw.Flush()
}

// clearCache clears the cache directory
func clearCache(out io.Writer, c *app.Container) error {
	if c.CacheStore == nil {
		return errors.New(ErrCacheStoreUnavailable)
	}
	if err := c.CacheStore.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintf(out, "Cache cleared (%s)\n", c.CacheStore.Dir())
	return nil
}
