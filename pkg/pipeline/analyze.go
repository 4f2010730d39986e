package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/matzehuels/codecity/pkg/analysis"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// =============================================================================
// Analysis
// =============================================================================

// Analyze measures the repositories named by opts without caching.
// Use [Runner.Analyze] for the cached variant.
func Analyze(ctx context.Context, a *analysis.Analyzer, opts Options) ([]metrics.Repository, error) {
	if err := opts.ValidateForAnalyze(); err != nil {
		return nil, err
	}
	switch opts.Source() {
	case SourceGitHub:
		repo, err := a.AnalyzeRemote(ctx, opts.Owner, opts.Repo)
		if err != nil {
			return nil, err
		}
		return []metrics.Repository{repo}, nil

	case SourceScan:
		res, err := a.Scan(ctx, opts.ScanDir)
		if err != nil {
			return nil, err
		}
		return res.Repositories, nil

	default:
		repo, err := a.Analyze(ctx, opts.Path)
		if err != nil {
			return nil, err
		}
		return []metrics.Repository{repo}, nil
	}
}

// sourceLabel names the analysis source in logs and hook events.
func sourceLabel(opts Options) string {
	switch opts.Source() {
	case SourceGitHub:
		return opts.Owner + "/" + opts.Repo
	case SourceScan:
		return opts.ScanDir
	default:
		return opts.Path
	}
}

// totalLines sums the line counts of repos.
func totalLines(repos []metrics.Repository) uint64 {
	var n uint64
	for _, r := range repos {
		n += r.TotalLines
	}
	return n
}

func since(start time.Time) time.Duration { return time.Since(start).Round(time.Millisecond) }

func noRepositories(opts Options) error {
	return errors.New(errors.ErrCodeNoData, "no repositories found in %s", sourceLabel(opts))
}

// repoSourcePath normalizes a local path for cache keys.
func repoSourcePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
