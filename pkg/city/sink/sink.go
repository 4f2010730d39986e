// Package sink writes computed layouts to files and HTTP responses.
//
// Supported formats:
//
//   - json: the layout document, optionally with legend and camera
//   - svg:  a top-down plan with hover tooltips
//   - png, pdf: the plan converted with rsvg-convert
//   - dot:  the directory tree in Graphviz DOT
//   - tree: the directory tree rendered to SVG by Graphviz
package sink

import (
	"context"
	"slices"
	"strings"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// Format is an output format name.
type Format string

const (
	FormatJSON Format = "json"
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatDOT  Format = "dot"
	FormatTree Format = "tree"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatSVG, FormatPNG, FormatPDF, FormatDOT, FormatTree}

// ParseFormat validates a format name (case-insensitive).
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Formats, f) {
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", s)
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	if f == FormatTree {
		return ".tree.svg"
	}
	return "." + string(f)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatSVG, FormatTree:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/vnd.graphviz"
	}
}

// Input is everything a renderer may draw from.
type Input struct {
	Doc   layout.Document
	Repos []metrics.Repository
}

// Options configures [Render].
type Options struct {
	Popups    bool
	Highlight string
	Scale     float64
	Depth     int
}

// Render produces one artifact in format f.
func Render(ctx context.Context, f Format, in Input, opts Options) ([]byte, error) {
	svg := func() []byte {
		o := []SVGOption{WithTitle(in.Doc.View), WithHighlight(opts.Highlight)}
		if opts.Popups {
			o = append(o, WithPopups())
		}
		return RenderSVG(in.Doc.Result(), o...)
	}

	switch f {
	case FormatJSON:
		return RenderJSON(in.Doc, WithLegend(in.Repos), WithCamera())
	case FormatSVG:
		return svg(), nil
	case FormatPNG:
		return ToPNG(ctx, svg(), opts.Scale)
	case FormatPDF:
		return ToPDF(ctx, svg())
	case FormatDOT:
		return []byte(ToDOT(in.Repos, DOTOptions{Depth: opts.Depth, Detailed: true})), nil
	case FormatTree:
		return RenderGraph(ctx, ToDOT(in.Repos, DOTOptions{Depth: opts.Depth, Detailed: true}))
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", f)
	}
}
