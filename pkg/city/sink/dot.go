package sink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/codecity/pkg/metrics"
)

// DOTOptions configures the directory tree graph.
type DOTOptions struct {
	// Depth limits how many directory levels are drawn; 0 draws all.
	Depth int
	// Detailed adds line counts and ages to node labels.
	Detailed bool
}

// ToDOT converts repositories and their directory trees to Graphviz DOT.
// Nodes are filled with the color of their primary language.
func ToDOT(repos []metrics.Repository, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=14, fontcolor=white, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.2;\n")

	for _, r := range repos {
		rec := r.Record()
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "  %q [%s, penwidth=2];\n", r.ID, nodeAttrs(rec, opts.Detailed))
		writeDirs(&buf, r.ID, r, r.Directories, 1, opts)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeDirs(buf *bytes.Buffer, parent string, owner metrics.Repository, dirs []metrics.Directory, depth int, opts DOTOptions) {
	if opts.Depth > 0 && depth > opts.Depth {
		return
	}
	for _, d := range dirs {
		rec := d.Record(owner)
		fmt.Fprintf(buf, "  %q [%s];\n", rec.ID, nodeAttrs(rec, opts.Detailed))
		fmt.Fprintf(buf, "  %q -> %q;\n", parent, rec.ID)
		writeDirs(buf, rec.ID, owner, d.Children, depth+1, opts)
	}
}

func nodeAttrs(r metrics.Record, detailed bool) string {
	label := r.Name
	if detailed {
		label += "\n" + metrics.FormatLines(r.TotalLines) + " lines\n" + metrics.FormatAge(r.AgeDays)
	}
	return strings.Join([]string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("fillcolor=%q", r.Color()),
	}, ", ")
}

// RenderGraph renders a DOT graph to SVG using Graphviz.
func RenderGraph(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz root element (pt units, offset
// viewBox) with a plain pixel-sized one.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
