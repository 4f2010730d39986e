package sink

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"slices"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/pick"
	"github.com/matzehuels/codecity/pkg/metrics"
)

const planCSS = `
    .building { stroke: #1a1a2e; stroke-width: 0.5; transition: filter 0.15s ease; }
    .building.hovered { filter: brightness(1.25); stroke-width: 1.5; }
    .building.highlighted { stroke: #333366; stroke-width: 2.5; }
    .block { stroke: #444; stroke-width: 0.5; }
    .block-label { font-family: system-ui, sans-serif; fill: #ddd; }
    .tooltip { pointer-events: none; }
    .tooltip[visibility="hidden"] { opacity: 0; }`

// The flip rule matches pick.PlaceTooltip.
const planTooltipJS = `
    const svg = document.querySelector('svg');
    const vb = svg.viewBox.baseVal;
    const OFFSET = %d;
    function toSVG(evt) {
      const pt = svg.createSVGPoint();
      pt.x = evt.clientX; pt.y = evt.clientY;
      return pt.matrixTransform(svg.getScreenCTM().inverse());
    }
    document.querySelectorAll('.building').forEach(el => {
      const tip = document.querySelector('.tooltip[data-for="' + el.id + '"]');
      el.addEventListener('mousemove', evt => {
        el.classList.add('hovered');
        if (!tip) return;
        const p = toSVG(evt);
        const box = tip.getBBox();
        let x = p.x + OFFSET, y = p.y + OFFSET;
        if (x + box.width > vb.x + vb.width) x = p.x - box.width - OFFSET;
        if (y + box.height > vb.y + vb.height) y = p.y - box.height - OFFSET;
        tip.setAttribute('transform', 'translate(' + x.toFixed(1) + ',' + y.toFixed(1) + ')');
        tip.setAttribute('visibility', 'visible');
      });
      el.addEventListener('mouseleave', () => {
        el.classList.remove('hovered');
        if (tip) tip.setAttribute('visibility', 'hidden');
      });
    });`

// Plan defaults.
const (
	DefaultScale  = 8.0
	DefaultMargin = 20.0
)

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	scale     float64
	margin    float64
	popups    bool
	highlight string
	title     string
}

func WithSVGScale(s float64) SVGOption  { return func(r *svgRenderer) { r.scale = s } }
func WithPopups() SVGOption             { return func(r *svgRenderer) { r.popups = true } }
func WithHighlight(id string) SVGOption { return func(r *svgRenderer) { r.highlight = id } }
func WithTitle(title string) SVGOption  { return func(r *svgRenderer) { r.title = title } }
func WithSVGMargin(m float64) SVGOption { return func(r *svgRenderer) { r.margin = m } }

// RenderSVG draws a top-down plan of the layout: blocks as labeled ground
// rectangles, buildings as footprints shaded by height. With [WithPopups]
// each building gets a hover tooltip.
func RenderSVG(res layout.Result, opts ...SVGOption) []byte {
	r := svgRenderer{scale: DefaultScale, margin: DefaultMargin}
	for _, opt := range opts {
		opt(&r)
	}
	if r.scale <= 0 {
		r.scale = DefaultScale
	}

	bounds := res.Bounds()
	width := bounds.Width()*r.scale + 2*r.margin
	height := bounds.Depth()*r.scale + 2*r.margin
	px := func(x float64) float64 { return (x-bounds.MinX)*r.scale + r.margin }
	pz := func(z float64) float64 { return (z-bounds.MinZ)*r.scale + r.margin }

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", escape(r.title))
	}
	buf.WriteString(`  <rect width="100%" height="100%" fill="#1a1a2e"/>` + "\n")

	blocks := slices.Clone(res.Blocks)
	slices.SortFunc(blocks, func(a, b layout.Block) int { return cmp.Compare(a.OwnerID, b.OwnerID) })
	for _, b := range blocks {
		rect := b.Bounds()
		fmt.Fprintf(&buf, `  <rect id="block-%s" class="block" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" fill-opacity="0.35"/>`+"\n",
			escape(b.OwnerID), px(rect.MinX), pz(rect.MinZ), rect.Width()*r.scale, rect.Depth()*r.scale, b.Color)
		fmt.Fprintf(&buf, `  <text class="block-label" x="%.2f" y="%.2f" font-size="%.1f">%s</text>`+"\n",
			px(rect.MinX)+4, pz(rect.MinZ)-4, labelSize(r.scale), escape(b.Label()))
	}

	maxH := res.MaxHeight()
	buildings := slices.Clone(res.Buildings)
	slices.SortFunc(buildings, func(a, b layout.Building) int { return cmp.Compare(a.ID(), b.ID()) })
	for _, b := range buildings {
		fp := b.Footprint()
		class := "building"
		if b.ID() == r.highlight {
			class += " highlighted"
		}
		fmt.Fprintf(&buf, `  <rect id="%s" class="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" fill-opacity="%.2f"/>`+"\n",
			escape(b.ID()), class, px(fp.MinX), pz(fp.MinZ), fp.Width()*r.scale, fp.Depth()*r.scale, b.Color, shade(b.Dimensions.Height, maxH))
	}

	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", planCSS)
	if r.popups {
		for _, b := range buildings {
			renderTooltip(&buf, b)
		}
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA["+planTooltipJS+"\n  ]]></script>\n", pick.TooltipOffset)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func shade(h, maxH float64) float64 {
	if maxH <= 0 {
		return 1
	}
	return 0.55 + 0.45*h/maxH
}

func labelSize(scale float64) float64 {
	return max(9, min(16, scale*1.5))
}

func renderTooltip(buf *bytes.Buffer, b layout.Building) {
	lines := tooltipLines(b.Record)
	w := 0
	for _, l := range lines {
		w = max(w, len(l))
	}
	tw, th := float64(w)*6.6+16, float64(len(lines))*16+10

	fmt.Fprintf(buf, `  <g class="tooltip" data-for="%s" visibility="hidden">`+"\n", escape(b.ID()))
	fmt.Fprintf(buf, `    <rect width="%.1f" height="%.1f" rx="4" fill="#0f0f1a" fill-opacity="0.92" stroke="%s"/>`+"\n", tw, th, b.Color)
	for i, l := range lines {
		weight := "normal"
		if i == 0 {
			weight = "bold"
		}
		fmt.Fprintf(buf, `    <text x="8" y="%.1f" font-size="12" font-family="system-ui, sans-serif" font-weight="%s" fill="#eee">%s</text>`+"\n",
			float64(i)*16+20, weight, escape(l))
	}
	buf.WriteString("  </g>\n")
}

func tooltipLines(r metrics.Record) []string {
	lines := []string{r.Name}
	if r.OwnerName != "" {
		lines[0] = r.OwnerName + "/" + r.Name
	}
	lines = append(lines,
		metrics.FormatLinesExact(r.TotalLines)+" lines",
		metrics.FormatAge(r.AgeDays)+" old",
	)
	for i, l := range r.Languages {
		if i == 3 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %.1f%%", l.Name, l.Percentage))
	}
	return lines
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
