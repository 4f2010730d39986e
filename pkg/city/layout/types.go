package layout

import (
	"math"

	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// =============================================================================
// Profiles
// =============================================================================

// Range is a closed [Min, Max] interval.
type Range struct {
	Min float64 `json:"min" toml:"min" mapstructure:"min"`
	Max float64 `json:"max" toml:"max" mapstructure:"max"`
}

// Lerp maps t in [0,1] onto the range.
func (r Range) Lerp(t float64) float64 { return r.Min + t*(r.Max-r.Min) }

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 { return math.Min(r.Max, math.Max(r.Min, v)) }

// Profile selects the visual density of a layout pass.
type Profile struct {
	Size    Range   `json:"size" toml:"size" mapstructure:"size"`
	Height  Range   `json:"height" toml:"height" mapstructure:"height"`
	Spacing float64 `json:"spacing" toml:"spacing" mapstructure:"spacing"`
}

var (
	// FullProfile is used for flat views of repositories or directories.
	FullProfile = Profile{
		Size:    Range{Min: 2, Max: 12},
		Height:  Range{Min: 1, Max: 30},
		Spacing: 1.5,
	}

	// CompactProfile is used for directory buildings inside city blocks.
	CompactProfile = Profile{
		Size:    Range{Min: 2, Max: 8},
		Height:  Range{Min: 1, Max: 20},
		Spacing: 1.5,
	}
)

// Pitch is the grid cell size: the largest footprint plus spacing.
func (p Profile) Pitch() float64 { return p.Size.Max + p.Spacing }

// Validate reports profiles that could produce degenerate buildings.
func (p Profile) Validate() error {
	switch {
	case p.Size.Min <= 0 || p.Size.Max < p.Size.Min:
		return errors.New(errors.ErrCodeInvalidInput, "invalid size range [%g, %g]", p.Size.Min, p.Size.Max)
	case p.Height.Min <= 0 || p.Height.Max < p.Height.Min:
		return errors.New(errors.ErrCodeInvalidInput, "invalid height range [%g, %g]", p.Height.Min, p.Height.Max)
	case p.Spacing < 0:
		return errors.New(errors.ErrCodeInvalidInput, "spacing must not be negative: %g", p.Spacing)
	}
	return nil
}

// =============================================================================
// Geometry
// =============================================================================

// Position is a point on the ground plane.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Z float64 `json:"z" bson:"z"`
}

// Dimensions is the size of a building. Width always equals Depth.
type Dimensions struct {
	Width  float64 `json:"width" bson:"width"`
	Depth  float64 `json:"depth" bson:"depth"`
	Height float64 `json:"height" bson:"height"`
}

// Rect is an axis-aligned rectangle on the ground plane.
type Rect struct {
	MinX, MaxX float64
	MinZ, MaxZ float64
}

// RectAround builds the rectangle of the given size centered on p.
func RectAround(p Position, width, depth float64) Rect {
	return Rect{
		MinX: p.X - width/2, MaxX: p.X + width/2,
		MinZ: p.Z - depth/2, MaxZ: p.Z + depth/2,
	}
}

// Width returns the X extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Depth returns the Z extent.
func (r Rect) Depth() float64 { return r.MaxZ - r.MinZ }

// Overlaps reports whether the interiors of r and o intersect.
// Rectangles that only share an edge do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinZ < o.MaxZ && o.MinZ < r.MaxZ
}

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	const eps = 1e-9
	return o.MinX >= r.MinX-eps && o.MaxX <= r.MaxX+eps &&
		o.MinZ >= r.MinZ-eps && o.MaxZ <= r.MaxZ+eps
}

// Inset shrinks the rectangle by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{MinX: r.MinX + d, MaxX: r.MaxX - d, MinZ: r.MinZ + d, MaxZ: r.MaxZ - d}
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX), MaxX: math.Max(r.MaxX, o.MaxX),
		MinZ: math.Min(r.MinZ, o.MinZ), MaxZ: math.Max(r.MaxZ, o.MaxZ),
	}
}

// =============================================================================
// Placed Elements
// =============================================================================

// Building is a record placed in the city.
type Building struct {
	Record     metrics.Record `json:"record" bson:"record"`
	Position   Position       `json:"position" bson:"position"`
	Dimensions Dimensions     `json:"dimensions" bson:"dimensions"`
	Color      string         `json:"color" bson:"color"`

	// GroupKey is the stable ID of the owning block; empty in flat layouts.
	GroupKey string `json:"group_key,omitempty" bson:"group_key,omitempty"`
}

// ID returns the picking key of the building.
func (b Building) ID() string { return b.Record.ID }

// Footprint returns the ground rectangle covered by the building.
func (b Building) Footprint() Rect {
	return RectAround(b.Position, b.Dimensions.Width, b.Dimensions.Depth)
}

// Block is the ground rectangle that holds one owner's buildings.
type Block struct {
	OwnerID   string   `json:"owner_id" bson:"owner_id"`
	OwnerName string   `json:"owner_name" bson:"owner_name"`
	Position  Position `json:"position" bson:"position"`
	Width     float64  `json:"width" bson:"width"`
	Depth     float64  `json:"depth" bson:"depth"`
	Color     string   `json:"color" bson:"color"`

	// Row and Col locate the block in the packing.
	Row int `json:"row" bson:"row"`
	Col int `json:"col" bson:"col"`

	// Shown is the number of child buildings placed in the block.
	Shown int `json:"shown" bson:"shown"`
	// Total is the number of non-empty children before capping.
	Total int `json:"total" bson:"total"`
}

// Bounds returns the block rectangle.
func (b Block) Bounds() Rect { return RectAround(b.Position, b.Width, b.Depth) }

const maxLabelLen = 20

// Label returns the owner name, truncated for display.
func (b Block) Label() string {
	r := []rune(b.OwnerName)
	if len(r) <= maxLabelLen {
		return b.OwnerName
	}
	return string(r[:maxLabelLen-3]) + "..."
}

// Result is the output of a layout pass.
type Result struct {
	Buildings []Building `json:"buildings" bson:"buildings"`
	Blocks    []Block    `json:"blocks,omitempty" bson:"blocks,omitempty"`
}

// Empty reports whether nothing was placed.
func (r Result) Empty() bool { return len(r.Buildings) == 0 && len(r.Blocks) == 0 }

// Bounds returns the ground rectangle covering every building and block.
// The zero Rect is returned for an empty result.
func (r Result) Bounds() Rect {
	var out Rect
	first := true
	add := func(x Rect) {
		if first {
			out, first = x, false
			return
		}
		out = out.Union(x)
	}
	for _, b := range r.Blocks {
		add(b.Bounds())
	}
	for _, b := range r.Buildings {
		add(b.Footprint())
	}
	return out
}

// MaxHeight returns the tallest building height.
func (r Result) MaxHeight() float64 {
	var h float64
	for _, b := range r.Buildings {
		h = math.Max(h, b.Dimensions.Height)
	}
	return h
}

// Index maps record IDs to buildings.
func (r Result) Index() map[string]Building {
	m := make(map[string]Building, len(r.Buildings))
	for _, b := range r.Buildings {
		m[b.ID()] = b
	}
	return m
}
