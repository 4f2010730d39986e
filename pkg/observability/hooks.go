// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks; nothing is recorded
// until a backend is installed. The Prometheus backend lives in the prom
// subpackage and is registered by the CLI at startup.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnLayoutStart(ctx, "city", len(groups))
//	// ... pack blocks ...
//	observability.Pipeline().OnLayoutComplete(ctx, "city", len(res.Buildings), time.Since(start), nil)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the analyze, layout and render stages.
type PipelineHooks interface {
	// Analysis events
	OnAnalyzeStart(ctx context.Context, source string)
	OnAnalyzeComplete(ctx context.Context, source string, repos int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, view string, items int)
	OnLayoutComplete(ctx context.Context, view string, buildings int, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Interaction Hooks
// =============================================================================

// InteractionHooks receives picking events from view controllers.
type InteractionHooks interface {
	// OnHover records a hover change; id is empty when the hover cleared.
	OnHover(ctx context.Context, view, id string)

	// OnSelect records a click on a building.
	OnSelect(ctx context.Context, view, id string)

	// OnEmptyView records a view switch that produced no buildings.
	OnEmptyView(ctx context.Context, view string)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API server.
type HTTPHooks interface {
	// OnRequest records an incoming request for a route pattern.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records the response written for a route pattern.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks ignores every pipeline event. Embed it to implement
// only some of the methods.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnAnalyzeStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnAnalyzeComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnLayoutStart(context.Context, string, int)                           {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, string, int, time.Duration, error)  {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                              {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error)     {}

// NoopCacheHooks ignores cache events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopInteractionHooks ignores picking events.
type NoopInteractionHooks struct{}

func (NoopInteractionHooks) OnHover(context.Context, string, string)  {}
func (NoopInteractionHooks) OnSelect(context.Context, string, string) {}
func (NoopInteractionHooks) OnEmptyView(context.Context, string)      {}

// NoopHTTPHooks ignores HTTP events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Registry
// =============================================================================

// slot holds one registered hook set, falling back to a no-op value.
type slot[T any] struct {
	mu   sync.RWMutex
	h    T
	noop T
}

func newSlot[T any](noop T) *slot[T] { return &slot[T]{h: noop, noop: noop} }

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h
}

// set installs h; a nil h leaves the current hooks in place.
func (s *slot[T]) set(h T) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	s.h = s.noop
	s.mu.Unlock()
}

var (
	pipelineSlot    = newSlot[PipelineHooks](NoopPipelineHooks{})
	cacheSlot       = newSlot[CacheHooks](NoopCacheHooks{})
	interactionSlot = newSlot[InteractionHooks](NoopInteractionHooks{})
	httpSlot        = newSlot[HTTPHooks](NoopHTTPHooks{})
)

// SetPipelineHooks installs h for the analyze, layout and render stages.
// Call it at startup, before the first pipeline run.
func SetPipelineHooks(h PipelineHooks) { pipelineSlot.set(h) }

// SetCacheHooks installs h for cache lookups and writes.
func SetCacheHooks(h CacheHooks) { cacheSlot.set(h) }

// SetInteractionHooks installs h for hover, selection and view events.
func SetInteractionHooks(h InteractionHooks) { interactionSlot.set(h) }

// SetHTTPHooks installs h for the API server.
func SetHTTPHooks(h HTTPHooks) { httpSlot.set(h) }

// The accessors below return the installed hooks, never nil.
func Pipeline() PipelineHooks       { return pipelineSlot.get() }
func Cache() CacheHooks             { return cacheSlot.get() }
func Interaction() InteractionHooks { return interactionSlot.get() }
func HTTP() HTTPHooks               { return httpSlot.get() }

// Reset puts every slot back to its no-op hooks. Tests call it in cleanup.
func Reset() {
	pipelineSlot.reset()
	cacheSlot.reset()
	interactionSlot.reset()
	httpSlot.reset()
}
