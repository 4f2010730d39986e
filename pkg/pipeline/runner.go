package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codecity/pkg/analysis"
	"github.com/matzehuels/codecity/pkg/cache"
	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
	"github.com/matzehuels/codecity/pkg/observability"
)

// TTLs are the cache lifetimes of each stage.
type TTLs struct {
	Analysis time.Duration
	Layout   time.Duration
	Artifact time.Duration
}

// DefaultTTLs returns the package defaults from pkg/cache.
func DefaultTTLs() TTLs {
	return TTLs{Analysis: cache.TTLAnalysis, Layout: cache.TTLLayout, Artifact: cache.TTLArtifact}
}

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache, analyzer and logger: it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	Analyzer *analysis.Analyzer
	TTL      TTLs
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// The analyzer uses default options; replace Runner.Analyzer to change them.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	// Default options carry no ignore patterns, so New cannot fail.
	a, _ := analysis.New(analysis.Options{Logger: logger})
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		Analyzer: a,
		TTL:      DefaultTTLs(),
	}
}

// Execute runs the complete analyze → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Analyze
	start := time.Now()
	repos, hit, err := r.AnalyzeWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Repositories = repos
	result.Stats.AnalyzeTime = since(start)
	result.Stats.RepoCount = len(repos)
	result.Stats.TotalLines = totalLines(repos)
	result.CacheInfo.AnalyzeHit = hit

	r.Logger.Info("analyzed repositories",
		"repos", len(repos),
		"lines", result.Stats.TotalLines,
		"cached", hit,
		"duration", result.Stats.AnalyzeTime)

	// Stage 2: Layout
	start = time.Now()
	doc, hit, err := r.LayoutWithCacheInfo(ctx, repos, opts)
	if err != nil {
		return nil, err
	}
	result.Document = doc
	result.Stats.LayoutTime = since(start)
	result.Stats.BuildingCount = len(doc.Buildings)
	result.CacheInfo.LayoutHit = hit

	r.Logger.Info("computed layout",
		"view", doc.View,
		"buildings", len(doc.Buildings),
		"blocks", len(doc.Blocks),
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	start = time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, doc, repos, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = since(start)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// =============================================================================
// Analyze
// =============================================================================

// AnalyzeWithCacheInfo measures the source in opts and reports whether
// every analysis came from the cache.
//
// Local repositories are keyed by absolute path and HEAD commit, so a new
// commit invalidates the entry. GitHub repositories are keyed by owner/repo
// and expire with the analysis TTL. A scan caches each repository on its own.
func (r *Runner) AnalyzeWithCacheInfo(ctx context.Context, opts Options) ([]metrics.Repository, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForAnalyze(); err != nil {
		return nil, false, err
	}

	label := sourceLabel(opts)
	hooks := observability.Pipeline()
	hooks.OnAnalyzeStart(ctx, label)
	start := time.Now()

	repos, hit, err := r.analyze(ctx, opts)
	hooks.OnAnalyzeComplete(ctx, label, len(repos), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	if len(repos) == 0 {
		return nil, false, noRepositories(opts)
	}
	return repos, hit, nil
}

func (r *Runner) analyze(ctx context.Context, opts Options) ([]metrics.Repository, bool, error) {
	switch opts.Source() {
	case SourceGitHub:
		key := r.Keyer.AnalysisKey("github:"+opts.Owner+"/"+opts.Repo, cache.AnalysisKeyOpts{
			Ignore: r.Analyzer.Patterns(),
		})
		repo, hit, err := r.cachedRepository(ctx, key, opts.Refresh, func() (metrics.Repository, error) {
			return r.Analyzer.AnalyzeRemote(ctx, opts.Owner, opts.Repo)
		})
		if err != nil {
			return nil, false, err
		}
		return []metrics.Repository{repo}, hit, nil

	case SourceScan:
		allHit := true
		res, err := r.Analyzer.ScanWith(ctx, opts.ScanDir, func(ctx context.Context, path string) (metrics.Repository, error) {
			repo, hit, err := r.analyzeLocal(ctx, path, opts.Refresh)
			allHit = allHit && hit
			return repo, err
		})
		if err != nil {
			return nil, false, err
		}
		for path, ferr := range res.Failed {
			opts.Logger.Warn("repository skipped", "path", path, "err", errors.UserMessage(ferr))
		}
		return res.Repositories, allHit, nil

	default:
		repo, hit, err := r.analyzeLocal(ctx, opts.Path, opts.Refresh)
		if err != nil {
			return nil, false, err
		}
		return []metrics.Repository{repo}, hit, nil
	}
}

// analyzeLocal analyzes one local repository through the cache. The key
// covers HEAD, which dates the history, and a fingerprint of the working
// tree, which the line counts come from. Without a readable HEAD the
// analysis runs uncached and reports its own error.
func (r *Runner) analyzeLocal(ctx context.Context, path string, refresh bool) (metrics.Repository, bool, error) {
	head, err := analysis.Head(path)
	if err != nil {
		repo, aerr := r.Analyzer.Analyze(ctx, path)
		return repo, false, aerr
	}
	tree, err := r.Analyzer.Fingerprint(ctx, path)
	if err != nil {
		return metrics.Repository{}, false, err
	}
	key := r.Keyer.AnalysisKey("local:"+repoSourcePath(path), cache.AnalysisKeyOpts{
		Head:   head,
		Tree:   tree,
		Ignore: r.Analyzer.Patterns(),
	})
	return r.cachedRepository(ctx, key, refresh, func() (metrics.Repository, error) {
		return r.Analyzer.Analyze(ctx, path)
	})
}

func (r *Runner) cachedRepository(ctx context.Context, key string, refresh bool, fn func() (metrics.Repository, error)) (metrics.Repository, bool, error) {
	var repo metrics.Repository
	if !refresh && r.lookup(ctx, "analysis", key, &repo) {
		return repo, true, nil
	}
	repo, err := fn()
	if err != nil {
		return metrics.Repository{}, false, err
	}
	r.store(ctx, "analysis", key, repo, r.TTL.Analysis)
	return repo, false, nil
}

// Analyze is a convenience wrapper that calls AnalyzeWithCacheInfo and discards the cache hit info.
func (r *Runner) Analyze(ctx context.Context, opts Options) ([]metrics.Repository, error) {
	repos, _, err := r.AnalyzeWithCacheInfo(ctx, opts)
	return repos, err
}

// =============================================================================
// Layout
// =============================================================================

// LayoutWithCacheInfo computes the layout with caching and returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, repos []metrics.Repository, opts Options) (layout.Document, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Document{}, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, opts.View, len(repos))
	start := time.Now()

	doc, hit, err := r.layout(ctx, repos, opts)
	hooks.OnLayoutComplete(ctx, opts.View, len(doc.Buildings), time.Since(start), err)
	return doc, hit, err
}

func (r *Runner) layout(ctx context.Context, repos []metrics.Repository, opts Options) (layout.Document, bool, error) {
	dataHash, err := cache.HashJSON(repos)
	if err != nil {
		return layout.Document{}, false, errors.Wrap(errors.ErrCodeInternal, err, "hash repositories")
	}
	key := r.Keyer.LayoutKey(dataHash, opts.LayoutKeyOpts())

	var doc layout.Document
	if r.lookup(ctx, "layout", key, &doc) {
		return doc, true, nil
	}
	doc, err = ComputeLayout(repos, opts)
	if err != nil {
		return layout.Document{}, false, err
	}
	r.store(ctx, "layout", key, doc, r.TTL.Layout)
	return doc, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, repos []metrics.Repository, opts Options) (layout.Document, error) {
	doc, _, err := r.LayoutWithCacheInfo(ctx, repos, opts)
	return doc, err
}

// =============================================================================
// Render
// =============================================================================

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
// Only formats missing from the cache are rendered.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, doc layout.Document, repos []metrics.Repository, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	artifacts, hit, err := r.render(ctx, doc, repos, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, hit, err
}

func (r *Runner) render(ctx context.Context, doc layout.Document, repos []metrics.Repository, opts Options) (map[string][]byte, bool, error) {
	docHash, err := cache.HashJSON(doc)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "hash layout")
	}
	reposHash, err := cache.HashJSON(repos)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "hash repositories")
	}
	keyFor := func(format string) string {
		h := docHash
		if usesRepositories(format) {
			h = reposHash
		}
		return r.Keyer.ArtifactKey(h, opts.ArtifactKeyOpts(format))
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if data, hit, err := r.Cache.Get(ctx, keyFor(format)); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "artifact")
			artifacts[format] = data
			continue
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	rendered, err := renderFormats(ctx, doc, repos, opts, missing)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		if err := r.Cache.Set(ctx, keyFor(format), data, r.TTL.Artifact); err != nil {
			r.Logger.Debug("cache set failed", "stage", "artifact", "err", err)
			continue
		}
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	return artifacts, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, doc layout.Document, repos []metrics.Repository, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, doc, repos, opts)
	return artifacts, err
}

// =============================================================================
// Cache helpers
// =============================================================================

// lookup decodes a cached JSON value into v. A backend error or an
// undecodable entry counts as a miss.
func (r *Runner) lookup(ctx context.Context, kind, key string, v any) bool {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache get failed", "stage", kind, "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, kind)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.Logger.Debug("discarding corrupt cache entry", "stage", kind, "err", err)
		observability.Cache().OnCacheMiss(ctx, kind)
		return false
	}
	observability.Cache().OnCacheHit(ctx, kind)
	return true
}

func (r *Runner) store(ctx context.Context, kind, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache set failed", "stage", kind, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
