package layout

import (
	"math"
	"slices"

	"github.com/matzehuels/codecity/pkg/metrics"
)

// Grid places records on a square-ish grid centered on the origin,
// largest first in row-major order.
//
// The pitch is the profile's largest footprint plus spacing, so neighbors
// never overlap regardless of their individual sizes.
func Grid(items []metrics.Record, p Profile) []Building {
	if len(items) == 0 {
		return nil
	}

	sorted := slices.Clone(items)
	metrics.SortByLines(sorted)

	n := len(sorted)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	pitch := p.Pitch()
	batch := NewBatch(sorted)

	out := make([]Building, 0, n)
	for i, rec := range sorted {
		row, col := i/cols, i%cols
		out = append(out, Building{
			Record: rec,
			Position: Position{
				X: (float64(col) - float64(cols)/2) * pitch,
				Z: (float64(row) - float64(rows)/2) * pitch,
			},
			Dimensions: MapDimensions(rec, batch, p),
			Color:      rec.Color(),
		})
	}
	return out
}

// NonEmpty drops records without any lines of code.
func NonEmpty(records []metrics.Record) []metrics.Record {
	out := make([]metrics.Record, 0, len(records))
	for _, r := range records {
		if r.TotalLines > 0 {
			out = append(out, r)
		}
	}
	return out
}
