package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
	"github.com/matzehuels/codecity/pkg/pipeline"
	"github.com/matzehuels/codecity/pkg/store"
)

// sourceFlags selects the repositories a command works on. Without any of
// them the repositories saved by earlier analyze or scan runs are used.
type sourceFlags struct {
	github  string // owner/repo
	scan    string // directory of repositories
	input   string // repositories JSON written by analyze -o
	refresh bool
	noCache bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.github, "github", "", "analyze a GitHub repository (owner/repo)")
	cmd.Flags().StringVar(&f.scan, "scan", "", "analyze every git repository under a directory")
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "read repositories from a JSON file")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "re-analyze even when a cached result exists")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.MarkFlagsMutuallyExclusive("github", "scan", "input")
}

// options fills the analysis source of opts from the flags and an optional
// path argument. It reports whether any source was given.
func (f *sourceFlags) options(opts *pipeline.Options, args []string) (bool, error) {
	opts.Refresh = f.refresh
	switch {
	case f.github != "":
		if len(args) > 0 {
			return false, errors.New(errors.ErrCodeInvalidInput, "a path cannot be combined with --github")
		}
		owner, repo, err := parseRepoRef(f.github)
		if err != nil {
			return false, err
		}
		opts.Owner, opts.Repo = owner, repo
	case f.scan != "":
		if len(args) > 0 {
			return false, errors.New(errors.ErrCodeInvalidInput, "a path cannot be combined with --scan")
		}
		opts.ScanDir = f.scan
	case len(args) > 0:
		opts.Path = args[0]
	default:
		return false, nil
	}
	return true, nil
}

// loadRepositories returns the repositories selected by the flags. Freshly
// analyzed repositories are saved to the store.
func (c *CLI) loadRepositories(ctx context.Context, runner *pipeline.Runner, st store.Store, f *sourceFlags, args []string) ([]metrics.Repository, bool, error) {
	if f.input != "" {
		repos, err := readRepositoriesFile(f.input)
		return repos, false, err
	}

	opts := c.pipelineOptions()
	ok, err := f.options(&opts, args)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		repos, err := st.List(ctx)
		if err != nil {
			return nil, false, err
		}
		if len(repos) == 0 {
			return nil, false, errors.New(errors.ErrCodeNoData, "no repositories have been analyzed yet; run `%s analyze <path>` first", appName)
		}
		loggerFromContext(ctx).Debug("using stored repositories", "count", len(repos))
		return repos, true, nil
	}

	repos, hit, err := runner.AnalyzeWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, false, err
	}
	if err := store.PutAll(ctx, st, repos); err != nil {
		return nil, false, err
	}
	return repos, hit, nil
}

// writeRepositoriesFile saves repositories as indented JSON.
func writeRepositoriesFile(repos []metrics.Repository, path string) error {
	data, err := json.MarshalIndent(repos, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode repositories")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

// readRepositoriesFile loads repositories written by [writeRepositoriesFile].
func readRepositoriesFile(path string) ([]metrics.Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	var repos []metrics.Repository
	if err := json.Unmarshal(data, &repos); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", path)
	}
	if len(repos) == 0 {
		return nil, errors.New(errors.ErrCodeNoData, "%s contains no repositories", path)
	}
	return repos, nil
}
