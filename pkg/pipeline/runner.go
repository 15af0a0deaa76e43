package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowmend/pkg/buildinfo"
	"github.com/matzehuels/flowmend/pkg/cache"
	"github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/observability"
	"github.com/matzehuels/flowmend/pkg/repair"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// Runner executes the pipeline with caching.
//
// The Runner holds no per-run state; several goroutines can share one
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger

	// Engine identifies the engine build in cache keys. Defaults to
	// buildinfo.Engine().
	Engine string
}

// NewRunner creates a runner. A nil cache disables caching; a nil logger
// uses the charmbracelet default logger.
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger, Engine: buildinfo.Engine()}
}

// cacheEntry is the cached form of a repair: everything in Result that
// does not depend on the requested formats.
type cacheEntry struct {
	Graph       workflow.Graph     `json:"graph"`
	Diagnostics repair.Diagnostics `json:"diagnostics"`
	Stages      []repair.StageStat `json:"stages"`
}

type cacheInput struct {
	Graph  workflow.Graph      `json:"graph"`
	Layout repair.LayoutConfig `json:"layout"`
}

// Execute repairs g, checks the result, and renders the requested formats.
//
// A fatal repair error is returned unchanged (errors.IsFatal reports true)
// and no result is produced; the caller keeps its previous graph.
func (r *Runner) Execute(ctx context.Context, g workflow.Graph, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger

	input, err := json.Marshal(cacheInput{Graph: g, Layout: opts.Layout})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "encode workflow")
	}
	result := &Result{
		InputHash: cache.Hash(input),
		Stats:     Stats{InputNodes: len(g.Nodes), InputEdges: len(g.Edges)},
	}

	start := time.Now()
	entry, hit, err := r.repair(ctx, g, input, opts)
	if err != nil {
		logger.Error("repair failed", "error", err, "fatal", errors.IsFatal(err))
		return nil, err
	}
	result.Graph = entry.Graph
	result.Diagnostics = entry.Diagnostics
	result.Stages = entry.Stages
	result.CacheHit = hit
	result.Stats.RepairTime = time.Since(start)
	result.Stats.NodeCount = len(entry.Graph.Nodes)
	result.Stats.EdgeCount = len(entry.Graph.Edges)

	for _, d := range result.Diagnostics.Warnings() {
		logger.Debug(d.Message, "stage", d.Stage, "code", d.Code, "node", d.NodeID, "edge", d.EdgeID)
	}
	logger.Info("repaired workflow",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"diagnostics", len(result.Diagnostics),
		"warnings", len(result.Diagnostics.Warnings()),
		"cached", hit,
		"duration", result.Stats.RepairTime)

	result.Violations = repair.ValidateWith(result.Graph, opts.RepairOptions())
	for _, v := range result.Violations {
		logger.Warn("invariant violated", "rule", v.Rule, "detail", v.Message)
	}
	if opts.Strict && len(result.Violations) > 0 {
		return nil, errors.New(errors.ErrCodeInternal,
			"repaired workflow violates %d invariant(s), first: %s", len(result.Violations), result.Violations[0])
	}

	renderStart := time.Now()
	artifacts, err := Render(ctx, result.Graph, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	logger.Debug("rendered outputs", "formats", opts.Formats, "duration", result.Stats.RenderTime)

	return result, nil
}

// Repair is Execute without validation or rendering. It returns the
// repaired graph and whether it came from the cache.
func (r *Runner) Repair(ctx context.Context, g workflow.Graph, opts Options) (repair.Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return repair.Result{}, false, fmt.Errorf("invalid options: %w", err)
	}
	input, err := json.Marshal(cacheInput{Graph: g, Layout: opts.Layout})
	if err != nil {
		return repair.Result{}, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "encode workflow")
	}
	entry, hit, err := r.repair(ctx, g, input, opts)
	if err != nil {
		return repair.Result{}, false, err
	}
	return repair.Result{Graph: entry.Graph, Diagnostics: entry.Diagnostics, Stages: entry.Stages}, hit, nil
}

func (r *Runner) repair(ctx context.Context, g workflow.Graph, input []byte, opts Options) (cacheEntry, bool, error) {
	key := cache.RepairKey(input, CatalogHash(opts.Catalog), r.engine())

	// An injected allocator changes the output IDs, so its runs bypass the
	// cache entirely.
	cacheable := opts.Allocator == nil

	if cacheable && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var entry cacheEntry
			if err := json.Unmarshal(data, &entry); err == nil {
				observability.Cache().OnCacheHit(ctx, "repair")
				return entry, true, nil
			}
		} else if err != nil {
			opts.Logger.Warn("cache lookup failed", "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, "repair")
	}

	hooks := observability.Repair()
	hooks.OnRepairStart(ctx, len(g.Nodes), len(g.Edges))
	start := time.Now()
	res, err := repair.Repair(g, opts.RepairOptions())
	if err != nil {
		hooks.OnRepairComplete(ctx, time.Since(start), 0, err)
		return cacheEntry{}, false, err
	}
	for _, s := range res.Stages {
		hooks.OnStage(ctx, s.Name, s.Duration, s.Diagnostics)
	}
	hooks.OnRepairComplete(ctx, time.Since(start), len(res.Diagnostics), nil)

	entry := cacheEntry{Graph: res.Graph, Diagnostics: res.Diagnostics, Stages: res.Stages}
	if cacheable {
		if data, err := json.Marshal(entry); err == nil {
			if err := r.Cache.Set(ctx, key, data, opts.CacheTTL); err != nil {
				opts.Logger.Warn("cache write failed", "error", err)
			} else {
				observability.Cache().OnCacheSet(ctx, "repair", len(data))
			}
		}
	}
	return entry, false, nil
}

func (r *Runner) engine() string {
	if r.Engine == "" {
		return buildinfo.Engine()
	}
	return r.Engine
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
