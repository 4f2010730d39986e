package layout_test

import (
	"fmt"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/metrics"
)

func ExampleMapDimensions() {
	small := metrics.Record{ID: "small", TotalLines: 100, AgeDays: 10}
	large := metrics.Record{ID: "large", TotalLines: 400, AgeDays: 40}
	batch := layout.NewBatch([]metrics.Record{small, large})

	for _, r := range []metrics.Record{small, large} {
		d := layout.MapDimensions(r, batch, layout.FullProfile)
		fmt.Printf("%s: footprint=%.0f height=%.2f\n", r.ID, d.Width, d.Height)
	}
	// Output:
	// small: footprint=7 height=8.25
	// large: footprint=12 height=30.00
}

func ExamplePack() {
	repos := []metrics.Repository{
		{ID: "api", Name: "api", TotalLines: 900, Directories: []metrics.Directory{
			{Name: "handlers", Path: "handlers", Lines: 600},
			{Name: "models", Path: "models", Lines: 300},
		}},
		{ID: "web", Name: "web", TotalLines: 400},
	}

	res := layout.Pack(layout.GroupsFrom(repos))
	for _, b := range res.Blocks {
		fmt.Printf("block %s: row=%d col=%d shown=%d\n", b.OwnerID, b.Row, b.Col, b.Shown)
	}
	for _, b := range res.Buildings {
		fmt.Printf("building %s in %s\n", b.Record.Name, b.GroupKey)
	}
	// Output:
	// block api: row=0 col=0 shown=2
	// block web: row=0 col=1 shown=0
	// building handlers in api
	// building models in api
}
