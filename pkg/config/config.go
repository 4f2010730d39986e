// Package config loads codecity settings.
//
// Settings come from three layers, later layers winning:
//
//  1. defaults from [Default]
//  2. the TOML file (codecity.toml in the XDG config directory, or --config)
//  3. environment variables prefixed CODECITY_, with dots replaced by
//     underscores (CODECITY_SERVER_ADDR, CODECITY_CACHE_BACKEND, ...)
//
// A missing config file is not an error.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codecity/pkg/analysis"
	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/view"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/store"
)

const (
	// AppName names the XDG directories.
	AppName = "codecity"
	// FileName is the config file name inside the config directory.
	FileName = "codecity.toml"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "CODECITY"
)

// Cache backend names.
const (
	CacheFile  = "file"
	CacheLRU   = "lru"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the complete configuration.
type Config struct {
	Layout   LayoutConfig   `mapstructure:"layout" toml:"layout"`
	Analysis AnalysisConfig `mapstructure:"analysis" toml:"analysis"`
	Cache    CacheConfig    `mapstructure:"cache" toml:"cache"`
	Store    store.Config   `mapstructure:"store" toml:"store"`
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
}

// LayoutConfig holds the layout parameters of every view.
type LayoutConfig struct {
	// Profile sizes buildings in the repository and directory views.
	Profile layout.Profile     `mapstructure:"profile" toml:"profile"`
	Pack    layout.PackOptions `mapstructure:"pack" toml:"pack"`
}

// View converts the layout settings for a view controller.
func (l LayoutConfig) View() view.Config {
	return view.Config{Profile: l.Profile, Pack: l.Pack}
}

// AnalysisConfig configures repository analysis.
type AnalysisConfig struct {
	Ignore       []string      `mapstructure:"ignore" toml:"ignore"`
	MaxFileSize  int64         `mapstructure:"max_file_size" toml:"max_file_size"`
	CloneURL     string        `mapstructure:"clone_url" toml:"clone_url"`
	CloneTimeout time.Duration `mapstructure:"clone_timeout" toml:"clone_timeout"`
}

// Options converts the settings for an analyzer.
func (a AnalysisConfig) Options(logger *log.Logger) analysis.Options {
	return analysis.Options{
		Ignore:       a.Ignore,
		MaxFileSize:  a.MaxFileSize,
		BaseURL:      a.CloneURL,
		CloneTimeout: a.CloneTimeout,
		Logger:       logger,
	}
}

// CacheConfig selects the pipeline cache and its TTLs.
type CacheConfig struct {
	Backend     string        `mapstructure:"backend" toml:"backend"`
	Dir         string        `mapstructure:"dir" toml:"dir"`
	Size        int           `mapstructure:"size" toml:"size"`
	RedisURL    string        `mapstructure:"redis_url" toml:"redis_url"`
	Prefix      string        `mapstructure:"prefix" toml:"prefix"`
	AnalysisTTL time.Duration `mapstructure:"analysis_ttl" toml:"analysis_ttl"`
	LayoutTTL   time.Duration `mapstructure:"layout_ttl" toml:"layout_ttl"`
	ArtifactTTL time.Duration `mapstructure:"artifact_ttl" toml:"artifact_ttl"`
}

// ServerConfig configures `codecity serve`.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" toml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" toml:"write_timeout"`
	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool `mapstructure:"metrics" toml:"metrics"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Layout: LayoutConfig{
			Profile: layout.FullProfile,
			Pack:    layout.DefaultPackOptions(),
		},
		Analysis: AnalysisConfig{
			MaxFileSize:  analysis.DefaultMaxFileSize,
			CloneURL:     analysis.GitHubURL,
			CloneTimeout: analysis.DefaultCloneTimeout,
		},
		Cache: CacheConfig{
			Backend:     CacheFile,
			Dir:         CacheDir(),
			Size:        512,
			Prefix:      AppName + ":",
			AnalysisTTL: 24 * time.Hour,
			LayoutTTL:   7 * 24 * time.Hour,
			ArtifactTTL: 7 * 24 * time.Hour,
		},
		Store: store.Config{
			Backend:  store.BackendSQLite,
			Path:     filepath.Join(DataDir(), "codecity.db"),
			Database: store.DefaultMongoDatabase,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
			Metrics:      true,
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if err := c.Layout.Profile.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout.profile")
	}
	if err := c.Layout.Pack.Profile.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout.pack.profile")
	}
	if c.Layout.Pack.ChildCap < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.pack.child_cap must be at least 1")
	}
	if c.Layout.Pack.RowAspect <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.pack.row_aspect must be positive")
	}

	if err := errors.ValidateURL(c.Analysis.CloneURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "analysis.clone_url")
	}

	if !slices.Contains([]string{CacheFile, CacheLRU, CacheRedis, CacheNone}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	switch {
	case c.Cache.Backend == CacheFile && c.Cache.Dir == "":
		return errors.New(errors.ErrCodeInvalidConfig, "cache.dir is required for the file cache")
	case c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "":
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_url is required for the redis cache")
	case c.Cache.Backend == CacheLRU && c.Cache.Size < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "cache.size must be at least 1")
	case c.Cache.AnalysisTTL < 0 || c.Cache.LayoutTTL < 0 || c.Cache.ArtifactTTL < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "cache TTLs must not be negative")
	}

	switch strings.ToLower(c.Store.Backend) {
	case store.BackendMemory:
	case store.BackendSQLite:
		if c.Store.Path == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.path is required for sqlite")
		}
	case store.BackendMongo:
		if c.Store.URI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.uri is required for mongo")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
	}

	if c.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "server.addr is required")
	}
	return nil
}

// =============================================================================
// Paths
// =============================================================================

// ConfigDir returns $XDG_CONFIG_HOME/codecity (~/.config/codecity).
func ConfigDir() string { return xdgDir("XDG_CONFIG_HOME", ".config") }

// CacheDir returns $XDG_CACHE_HOME/codecity (~/.cache/codecity).
func CacheDir() string { return xdgDir("XDG_CACHE_HOME", ".cache") }

// DataDir returns $XDG_DATA_HOME/codecity (~/.local/share/codecity).
func DataDir() string { return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")) }

// DefaultPath returns the default config file location.
func DefaultPath() string { return filepath.Join(ConfigDir(), FileName) }

func xdgDir(env, fallback string) string {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(home, fallback, AppName)
}
