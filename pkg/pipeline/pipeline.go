// Package pipeline provides the analyze → layout → render pipeline for
// codecity.
//
// The same pipeline backs the CLI commands and the HTTP API so that both
// produce identical results and share cache entries.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Analyze: measure local repositories, a directory of repositories or a
//     GitHub repository (see pkg/analysis)
//  2. Layout: place buildings and blocks for one view (see pkg/city/view)
//  3. Render: write the layout as JSON, SVG, PNG, PDF, DOT or a tree SVG
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Path:    "/src/myproject",
//	    View:    "dirs",
//	    Formats: []string{"svg", "json"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	repos, err := runner.Analyze(ctx, opts)
//	doc, err := runner.Layout(ctx, repos, opts)
//	artifacts, err := runner.Render(ctx, doc, repos, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codecity/pkg/cache"
	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/sink"
	"github.com/matzehuels/codecity/pkg/city/view"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// =============================================================================
// Defaults
// =============================================================================

// DefaultFormat is rendered when no format is requested.
const DefaultFormat = string(sink.FormatSVG)

// DefaultScale is the PNG scale factor.
const DefaultScale = 2.0

// Source kinds.
const (
	SourceLocal  = "local"
	SourceScan   = "scan"
	SourceGitHub = "github"
)

// =============================================================================
// Options
// =============================================================================

// Options selects a source, a view and output formats. The API decodes
// request bodies straight into it.
type Options struct {
	// Analyze options: exactly one source.
	Path    string `json:"path,omitempty"`     // local repository
	ScanDir string `json:"scan_dir,omitempty"` // directory of repositories
	Owner   string `json:"owner,omitempty"`    // GitHub owner (user/org)
	Repo    string `json:"repo,omitempty"`     // GitHub repository name
	Refresh bool   `json:"refresh,omitempty"`

	// Layout options
	View   string      `json:"view,omitempty"`
	Focus  string      `json:"focus,omitempty"` // repository ID for the dirs view
	Layout view.Config `json:"-"`

	// Render options
	Formats   []string `json:"formats,omitempty"`
	Popups    bool     `json:"popups,omitempty"`
	Highlight string   `json:"highlight,omitempty"`
	Scale     float64  `json:"scale,omitempty"`
	Depth     int      `json:"depth,omitempty"` // directory levels in dot/tree output

	Logger *log.Logger `json:"-"`

	validated bool // set by ValidateAndSetDefaults
}

// Result is everything one Execute call produced.
type Result struct {
	Repositories []metrics.Repository
	Document     layout.Document
	Artifacts    map[string][]byte // keyed by format
	Stats        Stats
	CacheInfo    CacheInfo
}

// Stats counts what a run touched and how long each stage took.
type Stats struct {
	RepoCount     int
	BuildingCount int
	TotalLines    uint64
	AnalyzeTime   time.Duration
	LayoutTime    time.Duration
	RenderTime    time.Duration
}

// CacheInfo records which stages were served from the cache. AnalyzeHit
// and RenderHit are only set when every repository or artifact hit.
type CacheInfo struct {
	AnalyzeHit bool
	LayoutHit  bool
	RenderHit  bool
}

// =============================================================================
// Validation
// =============================================================================

// ValidateFormats rejects the first name sink.ParseFormat does not know.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if _, err := sink.ParseFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Stage Checks
// =============================================================================

// ValidateAndSetDefaults runs the analyze, layout and render checks and
// fills in defaults. Later calls return nil without checking again.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForAnalyze(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Source returns the kind of analysis source that is set.
func (o *Options) Source() string {
	switch {
	case o.Owner != "" || o.Repo != "":
		return SourceGitHub
	case o.ScanDir != "":
		return SourceScan
	case o.Path != "":
		return SourceLocal
	default:
		return ""
	}
}

// ValidateForAnalyze checks that exactly one source is set.
func (o *Options) ValidateForAnalyze() error {
	n := 0
	for _, set := range []bool{o.Path != "", o.ScanDir != "", o.Owner != "" || o.Repo != ""} {
		if set {
			n++
		}
	}
	switch {
	case n == 0:
		return errors.New(errors.ErrCodeInvalidInput, "a path, scan directory or owner/repo is required")
	case n > 1:
		return errors.New(errors.ErrCodeInvalidInput, "path, scan directory and owner/repo are mutually exclusive")
	}
	if o.Source() == SourceGitHub {
		if err := errors.ValidateRepoRef(o.Owner, o.Repo); err != nil {
			return err
		}
	}
	o.setLogger()
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.View == "" {
		o.View = string(view.Repositories)
	}
	d := view.DefaultConfig()
	if o.Layout.Profile == (layout.Profile{}) {
		o.Layout.Profile = d.Profile
	}
	o.Layout.Pack.SetDefaults()
	o.setLogger()
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if _, err := view.ParseView(o.View); err != nil {
		return err
	}
	if err := o.Layout.Profile.Validate(); err != nil {
		return err
	}
	return o.Layout.Pack.Profile.Validate()
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	o.setLogger()
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		View:  o.View,
		Focus: o.Focus,
		Flat:  o.Layout.Profile,
		Pack:  o.Layout.Pack,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, Popups: o.Popups, Highlight: o.Highlight}
	switch sink.Format(format) {
	case sink.FormatPNG:
		k.Scale = o.Scale
	case sink.FormatDOT, sink.FormatTree:
		k.Depth = o.Depth
	}
	return k
}

// SinkOptions returns renderer options.
func (o *Options) SinkOptions() sink.Options {
	return sink.Options{Popups: o.Popups, Highlight: o.Highlight, Scale: o.Scale, Depth: o.Depth}
}
