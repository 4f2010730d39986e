package analysis

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// ScanResult is the outcome of [Analyzer.Scan].
type ScanResult struct {
	Repositories []metrics.Repository
	// Failed maps a directory to the error that stopped its analysis.
	Failed map[string]error
}

// FindRepositories lists the git repositories directly under dir, sorted
// by path. Hidden and ignored directories are skipped.
func (a *Analyzer) FindRepositories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", dir)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || a.ignore.match(e.Name(), true) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(p, ".git")); err == nil {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Scan analyzes every git repository directly under dir. A repository that
// fails to analyze is recorded in Failed and does not stop the scan; the
// scan fails with ErrCodeNoData only when nothing could be analyzed.
func (a *Analyzer) Scan(ctx context.Context, dir string) (ScanResult, error) {
	return a.ScanWith(ctx, dir, a.Analyze)
}

// AnalyzeFunc analyzes the repository at path.
type AnalyzeFunc func(ctx context.Context, path string) (metrics.Repository, error)

// ScanWith is [Analyzer.Scan] with a custom per-repository function, for
// callers that cache or instrument single analyses.
func (a *Analyzer) ScanWith(ctx context.Context, dir string, analyze AnalyzeFunc) (ScanResult, error) {
	if err := errors.ValidateLocalPath(dir); err != nil {
		return ScanResult{}, err
	}
	paths, err := a.FindRepositories(dir)
	if err != nil {
		return ScanResult{}, err
	}
	if len(paths) == 0 {
		return ScanResult{}, errors.New(errors.ErrCodeNoData, "no git repositories under %s", dir)
	}

	res := ScanResult{Failed: make(map[string]error)}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrap(errors.ErrCodeTimeout, err, "scan cancelled")
		}
		repo, err := analyze(ctx, p)
		if err != nil {
			a.logger.Warn("skipping repository", "path", p, "err", err)
			res.Failed[p] = err
			continue
		}
		res.Repositories = append(res.Repositories, repo)
	}
	if len(res.Repositories) == 0 {
		return res, errors.New(errors.ErrCodeNoData, "no repository under %s could be analyzed: %s", dir, failedNames(res.Failed))
	}
	return res, nil
}

func failedNames(failed map[string]error) string {
	names := make([]string, 0, len(failed))
	for p := range failed {
		names = append(names, filepath.Base(p))
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}
