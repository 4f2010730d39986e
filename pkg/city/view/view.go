// Package view decides which layout is on screen and feeds it to a [Scene].
//
// A [Controller] owns the placed buildings of the active view. Every view
// change recomputes the layout in full, clears the scene, redraws it, fits
// the camera and resets picking. Picking reads an immutable snapshot that
// is swapped atomically after each recompute.
package view

import (
	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/pick"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// View names a layout mode.
type View string

const (
	// Repositories is a flat grid with one building per repository.
	Repositories View = "repos"
	// Directories is a flat grid of one repository's first-level directories.
	Directories View = "dirs"
	// City packs every repository as a block of its directories.
	City View = "city"
)

// Views lists the supported views.
var Views = []View{Repositories, Directories, City}

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case Repositories, Directories, City:
		return v, nil
	case "":
		return Repositories, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidView, "unknown view %q (want repos, dirs or city)", s)
	}
}

// Scene is the rendering boundary. Implementations materialize volumes and
// ground rectangles; they never decide what is shown.
type Scene interface {
	Clear()
	AddBlock(b layout.Block)
	AddBuilding(b layout.Building)
	Focus(c pick.Camera)
}

// Emphasizer is implemented by scenes that can change how strongly a
// building is drawn.
type Emphasizer interface {
	Emphasize(changes []pick.Visual)
}

// Config holds the layout parameters used by every view.
type Config struct {
	// Profile sizes buildings in the flat views.
	Profile layout.Profile
	// Pack configures the block-packed city view.
	Pack layout.PackOptions
}

// DefaultConfig returns the standard layout parameters.
func DefaultConfig() Config {
	return Config{Profile: layout.FullProfile, Pack: layout.DefaultPackOptions()}
}

// Compute lays out view v over repos. focus selects the repository for
// [Directories]. An empty result means there is nothing to show.
func Compute(repos []metrics.Repository, v View, focus string, cfg Config) layout.Result {
	switch v {
	case Directories:
		repo, ok := metrics.Find(repos, focus)
		if !ok {
			return layout.Result{}
		}
		return layout.Result{Buildings: layout.Grid(layout.NonEmpty(repo.DirectoryRecords()), cfg.Profile)}

	case City:
		var withDirs []metrics.Repository
		for _, r := range repos {
			if len(r.Directories) > 0 {
				withDirs = append(withDirs, r)
			}
		}
		if len(withDirs) == 0 {
			return layout.Result{}
		}
		return layout.Pack(layout.GroupsFrom(withDirs), layout.WithOptions(cfg.Pack))

	default:
		records := make([]metrics.Record, 0, len(repos))
		for _, r := range repos {
			records = append(records, r.Record())
		}
		return layout.Result{Buildings: layout.Grid(records, cfg.Profile)}
	}
}
