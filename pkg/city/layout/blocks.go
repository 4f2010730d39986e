package layout

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/codecity/pkg/metrics"
)

// Group is an owner record together with the child records placed in its block.
type Group struct {
	Owner    metrics.Record
	Children []metrics.Record
}

// GroupsFrom builds one group per repository from its first-level directories.
func GroupsFrom(repos []metrics.Repository) []Group {
	groups := make([]Group, 0, len(repos))
	for _, r := range repos {
		groups = append(groups, Group{Owner: r.Record(), Children: r.DirectoryRecords()})
	}
	return groups
}

// =============================================================================
// Pack Options
// =============================================================================

// Default packing parameters.
const (
	DefaultChildCap     = 16
	DefaultPadding      = 2.0
	DefaultBlockSpacing = 8.0
	DefaultRowAspect    = 1.5
)

// PackOptions configures [Pack].
type PackOptions struct {
	// Profile sizes the child buildings.
	Profile Profile `json:"profile" toml:"profile" mapstructure:"profile"`
	// ChildCap bounds the number of children shown per block.
	ChildCap int `json:"child_cap" toml:"child_cap" mapstructure:"child_cap"`
	// Padding is the margin between a block edge and its grid.
	Padding float64 `json:"padding" toml:"padding" mapstructure:"padding"`
	// BlockSpacing separates neighboring blocks and rows.
	BlockSpacing float64 `json:"block_spacing" toml:"block_spacing" mapstructure:"block_spacing"`
	// RowAspect widens the target row: the row holds about
	// ceil(sqrt(groups*RowAspect)) average blocks.
	RowAspect float64 `json:"row_aspect" toml:"row_aspect" mapstructure:"row_aspect"`
}

// DefaultPackOptions returns the standard packing parameters.
func DefaultPackOptions() PackOptions {
	return PackOptions{
		Profile:      CompactProfile,
		ChildCap:     DefaultChildCap,
		Padding:      DefaultPadding,
		BlockSpacing: DefaultBlockSpacing,
		RowAspect:    DefaultRowAspect,
	}
}

// SetDefaults fills zero values with the defaults.
func (o *PackOptions) SetDefaults() {
	d := DefaultPackOptions()
	if o.Profile == (Profile{}) {
		o.Profile = d.Profile
	}
	if o.ChildCap <= 0 {
		o.ChildCap = d.ChildCap
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	if o.BlockSpacing < 0 {
		o.BlockSpacing = 0
	}
	if o.RowAspect <= 0 {
		o.RowAspect = d.RowAspect
	}
}

// PackOption customizes a packing pass.
type PackOption func(*PackOptions)

// WithOptions replaces all parameters at once.
func WithOptions(o PackOptions) PackOption { return func(p *PackOptions) { *p = o } }

// WithProfile sets the child building profile.
func WithProfile(p Profile) PackOption { return func(o *PackOptions) { o.Profile = p } }

// WithChildCap sets the number of children shown per block.
func WithChildCap(n int) PackOption { return func(o *PackOptions) { o.ChildCap = n } }

// WithPadding sets the block padding.
func WithPadding(d float64) PackOption { return func(o *PackOptions) { o.Padding = d } }

// WithBlockSpacing sets the gap between blocks.
func WithBlockSpacing(d float64) PackOption { return func(o *PackOptions) { o.BlockSpacing = d } }

// WithRowAspect sets the row width factor.
func WithRowAspect(f float64) PackOption { return func(o *PackOptions) { o.RowAspect = f } }

// =============================================================================
// Packing
// =============================================================================

type blockPlan struct {
	owner      metrics.Record
	shown      []metrics.Record
	total      int
	cols, rows int
	width      float64
	depth      float64
}

// Pack arranges each group as a block of child buildings and row-packs the
// blocks around the origin.
//
// Children without lines are skipped; at most ChildCap of the largest are
// shown. Child sizes are normalized against every non-empty child of every
// group so that directories compare across repositories. A group without
// children still gets a one-cell block.
func Pack(groups []Group, opts ...PackOption) Result {
	o := DefaultPackOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.SetDefaults()

	if len(groups) == 0 {
		return Result{}
	}

	ordered := slices.Clone(groups)
	slices.SortStableFunc(ordered, func(a, b Group) int {
		if c := cmp.Compare(b.Owner.TotalLines, a.Owner.TotalLines); c != 0 {
			return c
		}
		return cmp.Compare(a.Owner.ID, b.Owner.ID)
	})

	pitch := o.Profile.Pitch()
	plans := make([]blockPlan, 0, len(ordered))
	var all []metrics.Record
	for _, g := range ordered {
		kids := NonEmpty(g.Children)
		all = append(all, kids...)
		plans = append(plans, planBlock(g.Owner, kids, pitch, o))
	}

	batch := NewBatch(all)
	rows := packRows(plans, o)

	res := Result{
		Buildings: make([]Building, 0, len(all)),
		Blocks:    make([]Block, 0, len(plans)),
	}

	depths := make([]float64, len(rows))
	total := o.BlockSpacing * float64(len(rows)-1)
	for r, row := range rows {
		for _, idx := range row {
			depths[r] = math.Max(depths[r], plans[idx].depth)
		}
		total += depths[r]
	}

	z := -total / 2
	for r, row := range rows {
		cz := z + depths[r]/2

		var rowWidth float64
		for _, idx := range row {
			rowWidth += plans[idx].width + o.BlockSpacing
		}
		x := -(rowWidth - o.BlockSpacing) / 2

		for c, idx := range row {
			p := plans[idx]
			center := Position{X: x + p.width/2, Z: cz}
			res.Blocks = append(res.Blocks, Block{
				OwnerID:   p.owner.ID,
				OwnerName: p.owner.Name,
				Position:  center,
				Width:     p.width,
				Depth:     p.depth,
				Color:     p.owner.Color(),
				Row:       r,
				Col:       c,
				Shown:     len(p.shown),
				Total:     p.total,
			})
			res.Buildings = append(res.Buildings, placeChildren(p, center, pitch, batch, o.Profile)...)
			x += p.width + o.BlockSpacing
		}
		z += depths[r] + o.BlockSpacing
	}
	return res
}

func planBlock(owner metrics.Record, kids []metrics.Record, pitch float64, o PackOptions) blockPlan {
	metrics.SortByLines(kids)
	shown := kids
	if len(shown) > o.ChildCap {
		shown = shown[:o.ChildCap]
	}

	count := max(len(shown), 1)
	cols := int(math.Ceil(math.Sqrt(float64(count))))
	rows := (count + cols - 1) / cols

	return blockPlan{
		owner: owner,
		shown: shown,
		total: len(kids),
		cols:  cols,
		rows:  rows,
		width: float64(cols)*pitch + 2*o.Padding,
		depth: float64(rows)*pitch + 2*o.Padding,
	}
}

// packRows greedily fills rows up to a target width derived from the
// average block width.
func packRows(plans []blockPlan, o PackOptions) [][]int {
	var sum float64
	for _, p := range plans {
		sum += p.width
	}
	avg := sum / float64(len(plans))
	estCols := math.Ceil(math.Sqrt(float64(len(plans)) * o.RowAspect))
	target := estCols*(avg+o.BlockSpacing) + 1e-9

	var rows [][]int
	var cur []int
	var width float64
	for i, p := range plans {
		step := p.width + o.BlockSpacing
		if len(cur) > 0 && width+step > target {
			rows = append(rows, cur)
			cur, width = nil, 0
		}
		cur = append(cur, i)
		width += step
	}
	return append(rows, cur)
}

func placeChildren(p blockPlan, center Position, pitch float64, batch Batch, prof Profile) []Building {
	out := make([]Building, 0, len(p.shown))
	for i, rec := range p.shown {
		row, col := i/p.cols, i%p.cols
		out = append(out, Building{
			Record: rec,
			Position: Position{
				X: center.X + (float64(col)-float64(p.cols)/2+0.5)*pitch,
				Z: center.Z + (float64(row)-float64(p.rows)/2+0.5)*pitch,
			},
			Dimensions: MapDimensions(rec, batch, prof),
			Color:      rec.Color(),
			GroupKey:   p.owner.ID,
		})
	}
	return out
}
