// Package observability provides hooks for metrics, tracing, and logging.
//
// The repair engine, cache, workflow store, and HTTP server emit events
// through the hook interfaces below. Defaults are no-ops, so nothing is
// recorded until main registers an implementation. Backends such as
// Prometheus or OpenTelemetry live behind these interfaces and never become
// dependencies of the library packages.
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetRepairHooks(&myRepairHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Repair().OnRepairStart(ctx, len(g.Nodes), len(g.Edges))
//	res, err := repair.Repair(g, opts)
//	observability.Repair().OnRepairComplete(ctx, time.Since(start), len(res.Diagnostics), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Repair Hooks
// =============================================================================

// RepairHooks receives events from repair runs.
type RepairHooks interface {
	OnRepairStart(ctx context.Context, nodeCount, edgeCount int)

	// OnStage is called once per stage after a run completes, with the
	// number of diagnostics that stage produced.
	OnStage(ctx context.Context, stage string, duration time.Duration, diagnostics int)

	OnRepairComplete(ctx context.Context, duration time.Duration, diagnostics int, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from workflow store operations. Op is one of
// "get", "put", "delete" or "list".
type StoreHooks interface {
	OnStoreOp(ctx context.Context, op, id string, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	// OnResponse records a served request. Route is the matched route
	// pattern, not the raw path.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRepairHooks is a no-op implementation of RepairHooks.
type NoopRepairHooks struct{}

func (NoopRepairHooks) OnRepairStart(context.Context, int, int)                     {}
func (NoopRepairHooks) OnStage(context.Context, string, time.Duration, int)         {}
func (NoopRepairHooks) OnRepairComplete(context.Context, time.Duration, int, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreOp(context.Context, string, string, time.Duration, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	repairHooks RepairHooks = NoopRepairHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetRepairHooks registers custom repair hooks. Nil is ignored.
func SetRepairHooks(h RepairHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		repairHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetStoreHooks registers custom store hooks. Nil is ignored.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Repair returns the registered repair hooks.
func Repair() RepairHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return repairHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	repairHooks = NoopRepairHooks{}
	cacheHooks = NoopCacheHooks{}
	storeHooks = NoopStoreHooks{}
	httpHooks = NoopHTTPHooks{}
}
