// Package cli implements the codecity command-line interface.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/analysis"
	"github.com/matzehuels/codecity/pkg/buildinfo"
	"github.com/matzehuels/codecity/pkg/cache"
	"github.com/matzehuels/codecity/pkg/config"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/pipeline"
	"github.com/matzehuels/codecity/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = config.AppName

// cacheSchema scopes every cache key; bump it when cached shapes change.
const cacheSchema = "v1:"

// annotationNoConfig marks commands that must run even when the config
// file is broken.
const annotationNoConfig = "codecity/no-config"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	out    io.Writer

	// ConfigPath is the --config flag; empty selects the default location.
	ConfigPath string
	// Config is loaded before any subcommand runs.
	Config *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), out: w}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	c.Logger.SetReportCaller(level <= log.DebugLevel)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Codecity draws source repositories as a city",
		Long: `Codecity measures git repositories (lines of code per language, age from
history) and lays them out as a city: one building per repository or
directory, height from lines of code, color from the dominant language.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			if cmd.Annotations[annotationNoConfig] != "" {
				return nil
			}
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default "+config.DefaultPath()+")")

	// Register all subcommands
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.reposCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())
	c.registerCompletions(root)

	return root
}

// loadConfig reads the configuration once. Commands that run before a
// config exists (config init) tolerate a missing default file.
func (c *CLI) loadConfig() error {
	if c.Config != nil {
		return nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "path", c.configFile())
	return nil
}

func (c *CLI) configFile() string {
	if c.ConfigPath != "" {
		return c.ConfigPath
	}
	return config.DefaultPath()
}

// config returns the loaded configuration, or the defaults when a command
// runs without the root pre-run (tests).
func (c *CLI) config() config.Config {
	if c.Config == nil {
		return config.Default()
	}
	return *c.Config
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg := c.config()
	ch, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}
	a, err := analysis.New(cfg.Analysis.Options(c.Logger))
	if err != nil {
		ch.Close()
		return nil, err
	}

	r := pipeline.NewRunner(ch, cache.NewScopedKeyer(nil, cacheSchema), c.Logger)
	r.Analyzer = a
	r.TTL = pipeline.TTLs{
		Analysis: cfg.Cache.AnalysisTTL,
		Layout:   cfg.Cache.LayoutTTL,
		Artifact: cfg.Cache.ArtifactTTL,
	}
	return r, nil
}

func newCache(ctx context.Context, cfg config.CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheLRU:
		return cache.NewLRUCache(cfg.Size)
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.RedisURL, cfg.Prefix)
	default:
		return cache.NewFileCache(cfg.Dir)
	}
}

// openStore opens the configured repository store.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, c.config().Store)
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions returns options carrying the configured layout and the
// CLI logger.
func (c *CLI) pipelineOptions() pipeline.Options {
	cfg := c.config()
	return pipeline.Options{
		Layout: cfg.Layout.View(),
		Logger: c.Logger,
		Popups: true,
	}
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.DefaultFormat}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, strings.ToLower(f))
		}
	}
	return out
}

// parseRepoRef splits "owner/repo".
func parseRepoRef(s string) (string, string, error) {
	owner, repo, ok := strings.Cut(strings.TrimSuffix(s, ".git"), "/")
	if !ok {
		return "", "", errors.New(errors.ErrCodeInvalidRepoRef, "expected owner/repo, got %q", s)
	}
	if err := errors.ValidateRepoRef(owner, repo); err != nil {
		return "", "", err
	}
	return owner, repo, nil
}
