package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/sink"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
	"github.com/matzehuels/codecity/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string // output base path; the format extension is appended
	formats    string // comma-separated formats
	layoutFile string // render an existing layout instead of computing one
	popups     bool   // hover tooltips in SVG output
	highlight  string // building ID drawn highlighted
	scale      float64
	depth      int // directory levels in dot/tree output
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		src  sourceFlags
		lf   layoutFlags
		opts renderOpts
	)

	cmd := &cobra.Command{
		Use:   "render [path]",
		Short: "Render a city to SVG, PNG, PDF, JSON or Graphviz",
		Long: `Render a view of the city to one or more files.

Formats:
  svg   top-down plan with hover tooltips (default)
  png   the plan as PNG (needs rsvg-convert)
  pdf   the plan as PDF (needs rsvg-convert)
  json  the layout with a language legend and a fitted camera
  dot   the directory tree in Graphviz DOT
  tree  the directory tree rendered to SVG by Graphviz

Without a path or --github/--scan/--input the saved repositories are used.
With --layout an existing layout file is rendered as is.`,
		Example: `  codecity render --view city -f svg,png
  codecity render . --view dirs -o docs/city
  codecity render --layout city.layout.json -f pdf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), &src, &lf, opts, args)
		},
	}

	src.register(cmd)
	lf.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: codecity-<view>)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", pipeline.DefaultFormat, "output formats, comma-separated: "+formatList())
	cmd.Flags().StringVar(&opts.layoutFile, "layout", "", "render a layout written by the layout command")
	cmd.Flags().BoolVar(&opts.popups, "popups", true, "hover tooltips in SVG output")
	cmd.Flags().StringVar(&opts.highlight, "highlight", "", "building ID to highlight")
	cmd.Flags().Float64Var(&opts.scale, "scale", pipeline.DefaultScale, "PNG scale factor")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "directory levels in dot and tree output (0 for all)")
	cmd.MarkFlagsMutuallyExclusive("layout", "github")
	cmd.MarkFlagsMutuallyExclusive("layout", "scan")

	return cmd
}

func formatList() string {
	s := ""
	for i, f := range sink.Formats {
		if i > 0 {
			s += ", "
		}
		s += string(f)
	}
	return s
}

func (c *CLI) runRender(ctx context.Context, src *sourceFlags, lf *layoutFlags, ro renderOpts, args []string) error {
	opts := c.pipelineOptions()
	lf.apply(&opts)
	opts.Formats = parseFormats(ro.formats)
	opts.Popups = ro.popups
	opts.Highlight = ro.highlight
	opts.Scale = ro.scale
	opts.Depth = ro.depth
	if err := opts.ValidateForRender(); err != nil {
		return err
	}
	if needsConverter(opts.Formats) && !sink.HasConverter() {
		return errors.New(errors.ErrCodeUnsupported, "png and pdf output need rsvg-convert on PATH")
	}

	runner, err := c.newRunner(ctx, src.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	prog := newProgress(c.Logger)

	var (
		doc   layout.Document
		repos []metrics.Repository
	)
	if ro.layoutFile != "" {
		if doc, err = layout.ReadDocumentFile(ro.layoutFile); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "read layout %s", ro.layoutFile)
		}
		// The saved repositories only enrich the legend and tree outputs.
		if repos, err = st.List(ctx); err != nil {
			c.Logger.Warn("saved repositories unavailable", "err", err)
		}
	} else {
		if repos, _, err = c.loadRepositories(ctx, runner, st, src, args); err != nil {
			return err
		}
		if doc, err = runner.Layout(ctx, repos, opts); err != nil {
			return err
		}
	}

	spinner := newSpinner(ctx, "Rendering "+ro.formats+"...")
	spinner.Start()
	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, doc, repos, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	base := ro.output
	if base == "" {
		base = appName + "-" + doc.View
	}
	paths, err := writeArtifacts(base, artifacts)
	if err != nil {
		return err
	}
	prog.done("render finished", "files", len(paths), "cached", cacheHit)

	printSuccess("Render complete")
	for _, p := range paths {
		printFile(p)
	}
	printLayoutStats(doc, cacheHit)
	return nil
}

// writeArtifacts writes each artifact to base plus the format extension,
// in format order, and returns the written paths.
func writeArtifacts(base string, artifacts map[string][]byte) ([]string, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
		}
	}
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	slices.Sort(formats)

	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + sink.Format(f).Ext()
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func needsConverter(formats []string) bool {
	return slices.Contains(formats, string(sink.FormatPNG)) || slices.Contains(formats, string(sink.FormatPDF))
}
