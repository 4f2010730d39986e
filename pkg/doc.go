// Package pkg provides the core libraries for CodeCity repository visualization.
//
// # Overview
//
// CodeCity draws source repositories as a city: every repository or
// directory becomes a building whose height, footprint and color come from
// its size, age and dominant language. The pkg directory is organized into
// four main areas:
//
//  1. [analysis] - Repository analysis (git history, languages, directories)
//  2. city - Domain logic (dimension mapping, layout, picking, views)
//  3. [pipeline] - Orchestration (analyze → layout → render)
//  4. Infrastructure - [cache], [store], [config], [errors], [server]
//
// # Architecture
//
// The typical data flow through CodeCity:
//
//	Local checkout / GitHub repository / directory of checkouts
//	         ↓
//	    [analysis] package (metrics.Repository records)
//	         ↓
//	    [city/layout] package (grid or packed blocks of buildings)
//	         ↓
//	    [city/view] package (scene, picking, hover and selection)
//	         ↓
//	    SVG/PDF/PNG/DOT/JSON output or an interactive terminal view
//
// # Quick Start
//
// Analyze a checkout and lay out its directories:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/codecity/pkg/analysis"
//	    "github.com/matzehuels/codecity/pkg/city/layout"
//	    "github.com/matzehuels/codecity/pkg/metrics"
//	)
//
//	// 1. Analyze
//	a, _ := analysis.New(analysis.Options{})
//	repo, _ := a.Analyze(context.Background(), ".")
//
//	// 2. Group directories by repository
//	groups := layout.GroupsFrom([]metrics.Repository{repo})
//
//	// 3. Pack the blocks
//	res := layout.Pack(groups, layout.WithChildCap(16))
//
//	// 4. Export for rendering
//	doc := res.Export("dirs", repo.ID)
//
// # Main Packages
//
// ## City
//
// [city/layout] - Dimension mapping, the flat grid for repositories and the
// block packer for directories grouped under their owning repository.
// [layout.Profile] holds every tunable constant.
//
// [city/pick] - Ray casting against building boxes, the hover and selection
// state machine, emphasis diffs, tooltip placement and camera fitting.
//
// [city/view] - The [view.Controller] that switches between the repositories,
// directories and city views, feeds any [view.Scene] and keeps an atomic
// picking snapshot.
//
// [city/sink] - Static renderers: SVG, Graphviz DOT, JSON, plus PNG and PDF
// through rsvg-convert.
//
// ## Infrastructure
//
// [pipeline] - Complete pipeline (analyze → layout → render) shared by the
// CLI and the HTTP API, with results cached per stage.
//
// [cache] - Byte caches: file, in-process LRU, Redis and a no-op cache.
//
// [store] - Persistence for analyzed repositories: memory, SQLite and MongoDB.
//
// [server] - HTTP API over the pipeline and store.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/city/...               # Specific package
//	go test -run Example                 # Examples only
//
// [analysis]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/analysis
// [city/layout]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/city/layout
// [city/pick]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/city/pick
// [city/view]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/city/view
// [city/sink]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/city/sink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/errors
// [server]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/server
// [layout.Profile]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/city/layout#Profile
// [view.Controller]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/city/view#Controller
// [view.Scene]: https://pkg.go.dev/github.com/matzehuels/codecity/pkg/city/view#Scene
package pkg
