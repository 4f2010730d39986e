package layout

import (
	"math"

	"github.com/matzehuels/codecity/pkg/metrics"
)

// Batch holds the normalization constants of a sibling set.
// Both maxima are at least 1.
type Batch struct {
	MaxLines uint64
	MaxAge   uint64
}

// NewBatch computes the normalization constants for records.
func NewBatch(records []metrics.Record) Batch {
	b := Batch{MaxLines: 1, MaxAge: 1}
	for _, r := range records {
		b.MaxLines = max(b.MaxLines, r.TotalLines)
		b.MaxAge = max(b.MaxAge, r.AgeDays)
	}
	return b
}

// MapDimensions sizes a record relative to its batch.
//
// Footprints scale with the square root of the line count so that large
// repositories do not dwarf small ones; heights scale linearly with age.
func MapDimensions(r metrics.Record, b Batch, p Profile) Dimensions {
	maxLines := max(b.MaxLines, 1)
	maxAge := max(b.MaxAge, 1)

	size := math.Sqrt(float64(r.TotalLines)) / math.Sqrt(float64(maxLines))
	age := float64(r.AgeDays) / float64(maxAge)

	footprint := p.Size.Clamp(p.Size.Lerp(unit(size)))
	height := p.Height.Clamp(p.Height.Lerp(unit(age)))

	return Dimensions{Width: footprint, Depth: footprint, Height: height}
}

func unit(v float64) float64 { return math.Min(1, math.Max(0, v)) }
