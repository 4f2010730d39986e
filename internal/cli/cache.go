package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/cache"
	"github.com/matzehuels/codecity/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the analysis, layout and render cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cacheStatsCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config().Cache
			switch cfg.Backend {
			case config.CacheFile:
				fc, err := cache.NewFileCache(cfg.Dir)
				if err != nil {
					return err
				}
				count, err := fc.Clear()
				if err != nil {
					return err
				}
				printSuccess("Cleared %d cached entries", count)
				printDetail("Directory: %s", fc.Dir())
			case config.CacheRedis:
				rc, err := cache.NewRedisCache(cmd.Context(), cfg.RedisURL, cfg.Prefix)
				if err != nil {
					return err
				}
				defer rc.Close()
				count, err := rc.Clear(cmd.Context())
				if err != nil {
					return err
				}
				printSuccess("Cleared %d cached entries", count)
				printDetail("Prefix: %s", cfg.Prefix)
			default:
				printInfo("The %s cache keeps nothing between runs", cfg.Backend)
			}
			return nil
		},
	}
}

// cacheStatsCommand reports what the file cache holds.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the size of the file cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config().Cache
			if cfg.Backend != config.CacheFile {
				printInfo("Stats are only kept for the file cache (backend is %s)", cfg.Backend)
				return nil
			}
			fc, err := cache.NewFileCache(cfg.Dir)
			if err != nil {
				return err
			}
			st, err := fc.Stats()
			if err != nil {
				return err
			}
			printKeyValue("Directory", fc.Dir())
			printKeyValue("Entries", humanize.Comma(int64(st.Entries)))
			printKeyValue("Expired", humanize.Comma(int64(st.Expired)))
			printKeyValue("Size", humanize.Bytes(uint64(st.Bytes)))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.config().Cache.Dir)
			return nil
		},
	}
}
