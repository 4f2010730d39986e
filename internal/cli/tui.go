package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/pick"
	"github.com/matzehuels/codecity/pkg/city/view"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// =============================================================================
// termScene - a top-down city drawn into terminal cells
// =============================================================================

// cellAspect is how many world units of depth a row covers per unit of
// width a column covers; terminal cells are about twice as tall as wide.
const cellAspect = 2.0

// Cell size in virtual pixels, used for pointer and tooltip coordinates.
const (
	cellPixelsX = 8
	cellPixelsY = 16
)

// shades draws buildings from short to tall.
var shades = []rune{'░', '▒', '▓', '█'}

// termScene implements view.Scene and view.Emphasizer. It keeps the placed
// elements and draws them on demand for a given terminal size.
type termScene struct {
	blocks    []layout.Block
	buildings []layout.Building
	emphasis  map[string]pick.Emphasis
	camera    pick.Camera

	bounds    layout.Rect
	maxHeight float64

	// hits holds the building ID drawn in each cell of the last frame.
	hits [][]string
	proj projection
}

var (
	_ view.Scene      = (*termScene)(nil)
	_ view.Emphasizer = (*termScene)(nil)
)

func newTermScene() *termScene {
	return &termScene{emphasis: make(map[string]pick.Emphasis)}
}

func (s *termScene) Clear() {
	s.blocks = s.blocks[:0]
	s.buildings = s.buildings[:0]
	clear(s.emphasis)
}

func (s *termScene) AddBlock(b layout.Block) { s.blocks = append(s.blocks, b) }

func (s *termScene) AddBuilding(b layout.Building) { s.buildings = append(s.buildings, b) }

// Focus records the fitted camera and the plan bounds to draw.
func (s *termScene) Focus(c pick.Camera) {
	s.camera = c
	res := layout.Result{Buildings: s.buildings, Blocks: s.blocks}
	s.bounds = res.Bounds()
	s.maxHeight = res.MaxHeight()
}

func (s *termScene) Emphasize(changes []pick.Visual) {
	for _, v := range changes {
		if v.Emphasis == pick.Plain {
			delete(s.emphasis, v.ID)
		} else {
			s.emphasis[v.ID] = v.Emphasis
		}
	}
}

// projection maps world ground coordinates to cells.
type projection struct {
	minX, minZ float64
	unit       float64 // world X per column
	offCol     int
	offRow     int
	cols, rows int
}

func (s *termScene) project(cols, rows int) projection {
	w, d := s.bounds.Width(), s.bounds.Depth()
	if w <= 0 {
		w = 1
	}
	if d <= 0 {
		d = 1
	}
	unit := math.Max(w/float64(cols), d/(cellAspect*float64(rows)))
	usedCols := int(math.Ceil(w / unit))
	usedRows := int(math.Ceil(d / (unit * cellAspect)))
	return projection{
		minX:   s.bounds.MinX,
		minZ:   s.bounds.MinZ,
		unit:   unit,
		offCol: max(0, (cols-usedCols)/2),
		offRow: max(0, (rows-usedRows)/2),
		cols:   cols,
		rows:   rows,
	}
}

// world returns the ground point at the center of a cell.
func (p projection) world(col, row int) (float64, float64) {
	x := p.minX + (float64(col-p.offCol)+0.5)*p.unit
	z := p.minZ + (float64(row-p.offRow)+0.5)*p.unit*cellAspect
	return x, z
}

// cells returns the inclusive cell range whose centers lie in r. Rectangles
// smaller than a cell get the cell containing their center.
func (p projection) cells(r layout.Rect) (c0, r0, c1, r1 int) {
	colOf := func(x float64) float64 { return (x-p.minX)/p.unit + float64(p.offCol) }
	rowOf := func(z float64) float64 { return (z-p.minZ)/(p.unit*cellAspect) + float64(p.offRow) }

	c0 = int(math.Ceil(colOf(r.MinX) - 0.5))
	c1 = int(math.Floor(colOf(r.MaxX) - 0.5))
	r0 = int(math.Ceil(rowOf(r.MinZ) - 0.5))
	r1 = int(math.Floor(rowOf(r.MaxZ) - 0.5))
	if c1 < c0 {
		c0 = int(math.Floor(colOf((r.MinX + r.MaxX) / 2)))
		c1 = c0
	}
	if r1 < r0 {
		r0 = int(math.Floor(rowOf((r.MinZ + r.MaxZ) / 2)))
		r1 = r0
	}
	return c0, r0, c1, r1
}

// cell is one character of a frame.
type cell struct {
	ch     rune
	fg, bg string
	bold   bool
}

// tooltipBox is an overlay drawn on top of the plan.
type tooltipBox struct {
	col, row int
	lines    []string
}

// render draws the plan into cols×rows cells and remembers which building
// each cell shows for [termScene.buildingAt].
func (s *termScene) render(cols, rows int, tip *tooltipBox) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	s.proj = s.project(cols, rows)
	grid := make([][]cell, rows)
	s.hits = make([][]string, rows)
	for r := range grid {
		grid[r] = make([]cell, cols)
		for c := range grid[r] {
			grid[r][c] = cell{ch: ' '}
		}
		s.hits[r] = make([]string, cols)
	}

	fill := func(rect layout.Rect, fn func(c, r int)) {
		c0, r0, c1, r1 := s.proj.cells(rect)
		for r := max(r0, 0); r <= min(r1, rows-1); r++ {
			for c := max(c0, 0); c <= min(c1, cols-1); c++ {
				fn(c, r)
			}
		}
	}

	for _, b := range s.blocks {
		fill(b.Bounds(), func(c, r int) { grid[r][c] = cell{ch: '·', fg: b.Color} })
	}
	for _, b := range s.buildings {
		ch := s.shade(b.Dimensions.Height)
		e := s.emphasis[b.ID()]
		fill(b.Footprint(), func(c, r int) {
			cl := cell{ch: ch, fg: b.Color}
			switch e {
			case pick.Hovered:
				cl = cell{ch: '█', fg: "#ffffff", bg: e.Emissive(), bold: true}
			case pick.Highlighted:
				cl.bg = e.Emissive()
			}
			grid[r][c] = cl
			s.hits[r][c] = b.ID()
		})
	}
	// Block labels go on the first row of each block, over its buildings.
	for _, b := range s.blocks {
		c0, r0, c1, _ := s.proj.cells(b.Bounds())
		if r0 < 0 || r0 >= rows {
			continue
		}
		for i, ch := range []rune(b.Label()) {
			if c := c0 + i; c >= 0 && c < cols && c <= c1 {
				grid[r0][c] = cell{ch: ch, fg: "255", bold: true}
			}
		}
	}
	if tip != nil {
		for i, line := range tip.lines {
			r := tip.row + i
			if r < 0 || r >= rows {
				continue
			}
			for j, ch := range []rune(line) {
				if c := tip.col + j; c >= 0 && c < cols {
					grid[r][c] = cell{ch: ch, fg: "255", bg: "236"}
				}
			}
		}
	}

	var sb strings.Builder
	for r, row := range grid {
		if r > 0 {
			sb.WriteByte('\n')
		}
		writeRow(&sb, row)
	}
	return sb.String()
}

func (s *termScene) shade(h float64) rune {
	if s.maxHeight <= 0 {
		return shades[len(shades)-1]
	}
	i := int(h / s.maxHeight * float64(len(shades)))
	return shades[min(max(i, 0), len(shades)-1)]
}

// writeRow renders runs of equally styled cells together.
func writeRow(sb *strings.Builder, row []cell) {
	start := 0
	for i := 1; i <= len(row); i++ {
		if i < len(row) && sameStyle(row[i], row[start]) {
			continue
		}
		run := make([]rune, 0, i-start)
		for _, c := range row[start:i] {
			run = append(run, c.ch)
		}
		sb.WriteString(cellStyle(row[start]).Render(string(run)))
		start = i
	}
}

func sameStyle(a, b cell) bool { return a.fg == b.fg && a.bg == b.bg && a.bold == b.bold }

func cellStyle(c cell) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(c.bold)
	if c.fg != "" {
		st = st.Foreground(lipgloss.Color(c.fg))
	}
	if c.bg != "" {
		st = st.Background(lipgloss.Color(c.bg))
	}
	return st
}

// buildingAt returns the building drawn at a cell of the last frame.
func (s *termScene) buildingAt(col, row int) string {
	if row < 0 || row >= len(s.hits) || col < 0 || col >= len(s.hits[row]) {
		return ""
	}
	return s.hits[row][col]
}

// ray returns the picking ray for a cell of the last frame. Cells showing a
// building aim at its center so that what is drawn is what gets picked.
func (s *termScene) ray(col, row int, buildings map[string]layout.Building) pick.Ray {
	if id := s.buildingAt(col, row); id != "" {
		if b, ok := buildings[id]; ok {
			return pick.TopDown(b.Position.X, b.Position.Z)
		}
	}
	x, z := s.proj.world(col, row)
	return pick.TopDown(x, z)
}

// missRay points away from the ground and hits nothing.
var missRay = pick.Ray{Origin: pick.Vec3{Y: -1}, Dir: pick.Vec3{Y: -1}}

// tooltipFor builds and places the tooltip of a hovered record. Pointer and
// sizes go through virtual pixels so the usual tooltip offset applies.
func tooltipFor(r metrics.Record, col, row, cols, rows int) *tooltipBox {
	lines := []string{r.Name, metrics.FormatLinesExact(r.TotalLines) + " lines · " + metrics.FormatAge(r.AgeDays)}
	if r.OwnerName != "" {
		lines = append(lines, "in "+r.OwnerName)
	}
	for i, l := range r.Languages {
		if i == 3 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %.0f%%", l.Name, l.Percentage))
	}
	width := 0
	for _, l := range lines {
		width = max(width, len([]rune(l)))
	}
	for i, l := range lines {
		lines[i] = " " + l + strings.Repeat(" ", width-len([]rune(l))) + " "
	}

	p := pick.PlaceTooltip(
		pick.Point{X: float64(col * cellPixelsX), Y: float64(row * cellPixelsY)},
		pick.Size{W: float64((width + 2) * cellPixelsX), H: float64(len(lines) * cellPixelsY)},
		pick.Size{W: float64(cols * cellPixelsX), H: float64(rows * cellPixelsY)},
	)
	return &tooltipBox{
		col:   max(0, int(p.X)/cellPixelsX),
		row:   max(0, int(p.Y)/cellPixelsY),
		lines: lines,
	}
}
