package view

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/pick"
	"github.com/matzehuels/codecity/pkg/metrics"
	"github.com/matzehuels/codecity/pkg/observability"
)

// Outcome reports the result of a view change.
type Outcome struct {
	// Requested is the view that was asked for.
	Requested View
	// View and Focus describe what is on screen afterwards.
	View  View
	Focus string
	// Empty is set when the requested view had nothing to show. The scene
	// is left untouched and the previous view stays active.
	Empty     bool
	Buildings int
	Blocks    int
}

// Option configures a [Controller].
type Option func(*Controller)

// WithLogger sets the logger; the default discards output.
func WithLogger(l *log.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithConfig sets the layout parameters.
func WithConfig(cfg Config) Option { return func(c *Controller) { c.cfg = cfg } }

// OnHover registers the hover listener. It runs with the controller lock
// held and must not call back into the controller.
func OnHover(fn func(pick.HoverEvent)) Option { return func(c *Controller) { c.onHover = fn } }

// OnSelect registers the selection listener. Same restrictions as [OnHover].
func OnSelect(fn func(pick.SelectEvent)) Option { return func(c *Controller) { c.onSelect = fn } }

// Controller orchestrates views over a set of analyzed repositories.
// It is safe for concurrent use: recomputes and pointer events are
// serialized, reads go through the published snapshot.
type Controller struct {
	scene    Scene
	logger   *log.Logger
	cfg      Config
	onHover  func(pick.HoverEvent)
	onSelect func(pick.SelectEvent)

	mu        sync.Mutex
	repos     []metrics.Repository
	view      View
	focus     string
	result    layout.Result
	machine   pick.Machine
	highlight string

	snap atomic.Pointer[pick.Snapshot]
}

// NewController creates a controller drawing into scene.
func NewController(scene Scene, opts ...Option) *Controller {
	c := &Controller{
		scene: scene,
		cfg:   DefaultConfig(),
		view:  Repositories,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	c.snap.Store(pick.NewSnapshot(layout.Result{}))
	return c
}

// =============================================================================
// Data
// =============================================================================

// SetRepositories replaces the data and redraws the active view, falling
// back to the repository grid when the active view has become empty.
func (c *Controller) SetRepositories(ctx context.Context, repos []metrics.Repository) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repos = append([]metrics.Repository(nil), repos...)
	out := c.showLocked(ctx, c.view, c.focus)
	if out.Empty && c.view != Repositories {
		out = c.showLocked(ctx, Repositories, "")
	}
	return out
}

// Upsert adds or replaces one repository and shows the repository grid.
func (c *Controller) Upsert(ctx context.Context, repo metrics.Repository) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repos = metrics.Upsert(c.repos, repo)
	return c.showLocked(ctx, Repositories, "")
}

// Repositories returns the current data set.
func (c *Controller) Repositories() []metrics.Repository {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]metrics.Repository(nil), c.repos...)
}

// =============================================================================
// Views
// =============================================================================

// ViewRepositories shows one building per repository.
func (c *Controller) ViewRepositories(ctx context.Context) Outcome {
	return c.Show(ctx, Repositories, "")
}

// ViewDirectories shows the first-level directories of repository id.
func (c *Controller) ViewDirectories(ctx context.Context, id string) Outcome {
	return c.Show(ctx, Directories, id)
}

// ViewCity shows all repositories as blocks of directories.
func (c *Controller) ViewCity(ctx context.Context) Outcome {
	return c.Show(ctx, City, "")
}

// Show switches to view v. focus names the repository for [Directories].
func (c *Controller) Show(ctx context.Context, v View, focus string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showLocked(ctx, v, focus)
}

func (c *Controller) showLocked(ctx context.Context, v View, focus string) Outcome {
	if v != Directories {
		focus = ""
	}

	start := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, string(v), len(c.repos))
	res := Compute(c.repos, v, focus, c.cfg)
	observability.Pipeline().OnLayoutComplete(ctx, string(v), len(res.Buildings), time.Since(start), nil)

	if res.Empty() {
		c.logger.Warn("nothing to show", "view", v, "focus", focus, "fallback", c.view)
		observability.Interaction().OnEmptyView(ctx, string(v))
		return Outcome{Requested: v, View: c.view, Focus: c.focus, Empty: true}
	}

	c.scene.Clear()
	for _, b := range res.Blocks {
		c.scene.AddBlock(b)
	}
	for _, b := range res.Buildings {
		c.scene.AddBuilding(b)
	}
	snap := pick.NewSnapshot(res)
	c.scene.Focus(snap.Camera())

	c.machine.Reset()
	c.highlight = ""
	c.snap.Store(snap)
	c.view, c.focus, c.result = v, focus, res

	c.logger.Debug("view computed", "view", v, "focus", focus,
		"buildings", len(res.Buildings), "blocks", len(res.Blocks))
	return Outcome{
		Requested: v,
		View:      v,
		Focus:     focus,
		Buildings: len(res.Buildings),
		Blocks:    len(res.Blocks),
	}
}

// Current returns the active view and its focus.
func (c *Controller) Current() (View, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view, c.focus
}

// Result returns the layout currently on screen.
func (c *Controller) Result() layout.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Snapshot returns the published picking snapshot.
func (c *Controller) Snapshot() *pick.Snapshot { return c.snap.Load() }

// Buildings returns the placed buildings keyed by record ID.
func (c *Controller) Buildings() map[string]layout.Building {
	return c.snap.Load().Buildings()
}

// =============================================================================
// Interaction
// =============================================================================

// State returns the interaction state.
func (c *Controller) State() pick.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State()
}

// Move handles a pointer move at screen point (x, y) with world ray r.
func (c *Controller) Move(r pick.Ray, x, y float64) pick.Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr := c.machine.Move(c.snap.Load(), r, x, y)
	c.apply(tr)
	if tr.Hover != nil {
		id := ""
		if tr.Hover.Record != nil {
			id = tr.Hover.Record.ID
		}
		observability.Interaction().OnHover(context.Background(), string(c.view), id)
		if c.onHover != nil {
			c.onHover(*tr.Hover)
		}
	}
	return tr
}

// MoveScreen handles a pointer move in a viewport of w×h pixels using the
// fitted camera of the current snapshot.
func (c *Controller) MoveScreen(x, y, w, h float64) pick.Transition {
	return c.Move(c.snap.Load().Camera().Ray(x, y, w, h), x, y)
}

// Click handles a pointer click. Selecting a repository in the repository
// grid drills into its directories; the returned outcome is non-nil only
// when the view changed or the drill-down was empty.
func (c *Controller) Click(ctx context.Context) (pick.Transition, *Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr := c.machine.Click(c.snap.Load())
	c.apply(tr)
	if tr.Select == nil {
		return tr, nil
	}

	observability.Interaction().OnSelect(ctx, string(c.view), tr.Select.Record.ID)
	if c.onSelect != nil {
		c.onSelect(*tr.Select)
	}
	if c.view != Repositories {
		return tr, nil
	}
	out := c.showLocked(ctx, Directories, tr.Select.Record.ID)
	return tr, &out
}

// Highlight marks building id persistently, as when it is picked from a
// list outside the scene. It reports whether the building is placed.
func (c *Controller) Highlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.snap.Load().Building(id); !ok && id != "" {
		return false
	}
	if e, ok := c.scene.(Emphasizer); ok {
		changes := pick.DiffHighlight(c.highlight, id)
		// The hovered building keeps its hover emphasis.
		hovered := c.machine.State().Target
		kept := changes[:0]
		for _, v := range changes {
			if v.ID != hovered {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			e.Emphasize(kept)
		}
	}
	c.highlight = id
	return true
}

// Highlighted returns the persistently highlighted building ID.
func (c *Controller) Highlighted() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlight
}

func (c *Controller) apply(tr pick.Transition) {
	e, ok := c.scene.(Emphasizer)
	if !ok {
		return
	}
	if changes := pick.DiffVisuals(tr.From, tr.To, c.highlight); len(changes) > 0 {
		e.Emphasize(changes)
	}
}
