// Package pipeline runs the workflow repair engine with caching, rendering,
// logging, and observability hooks.
//
// The CLI and the HTTP server both go through a [Runner], so a workflow is
// repaired the same way regardless of entry point:
//
//  1. Repair: run [repair.Repair] (or reuse a cached result for the same
//     input, catalog, layout, and engine build)
//  2. Check: run [repair.Validate] on the output
//  3. Render: produce the requested artifacts (JSON, DOT, SVG)
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, logger)
//	result, err := runner.Execute(ctx, g, pipeline.Options{Formats: []string{"json", "dot"}})
//	if err != nil {
//	    // fatal repair error; keep the previous graph
//	}
//	repaired := result.Graph
//	dot := result.Artifacts["dot"]
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowmend/pkg/cache"
	"github.com/matzehuels/flowmend/pkg/idalloc"
	"github.com/matzehuels/flowmend/pkg/repair"
	"github.com/matzehuels/flowmend/pkg/workflow"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultCacheTTL is how long a repaired workflow stays cached.
const DefaultCacheTTL = 24 * time.Hour

// Format constants for output artifacts.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures a pipeline run. It supports JSON for API requests.
type Options struct {
	// CatalogPath is a TOML catalog override merged over the built-in
	// catalog. Ignored when Catalog is set.
	CatalogPath string `json:"catalog_path,omitempty"`

	// Layout overrides the node geometry. Zero fields use defaults.
	Layout repair.LayoutConfig `json:"layout,omitempty"`

	// Formats lists the artifacts to render. Defaults to JSON only.
	Formats []string `json:"formats,omitempty"`

	// Detailed adds IDs, types, and positions to DOT/SVG labels.
	Detailed bool `json:"detailed,omitempty"`

	// Strict fails the run when the repaired graph still violates a
	// structural invariant.
	Strict bool `json:"strict,omitempty"`

	// Refresh bypasses the cache lookup; the result is still stored.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	CacheTTL  time.Duration      `json:"-"`
	Logger    *log.Logger        `json:"-"`
	Catalog   *catalog.Catalog   `json:"-"`
	Allocator *idalloc.Allocator `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Graph       workflow.Graph     `json:"graph"`
	Diagnostics repair.Diagnostics `json:"diagnostics"`
	Stages      []repair.StageStat `json:"stages,omitempty"`

	// Violations lists invariants the repaired graph still breaks. It is
	// empty for every graph the engine produces; a non-empty list points at
	// an engine bug and fails the run in Strict mode.
	Violations []repair.Violation `json:"violations,omitempty"`

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte `json:"-"`

	Stats     Stats  `json:"stats"`
	CacheHit  bool   `json:"cache_hit"`
	InputHash string `json:"input_hash"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	InputNodes int           `json:"input_nodes"`
	InputEdges int           `json:"input_edges"`
	NodeCount  int           `json:"node_count"`
	EdgeCount  int           `json:"edge_count"`
	RepairTime time.Duration `json:"repair_time"`
	RenderTime time.Duration `json:"render_time"`
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults loads the catalog, checks formats, and applies
// defaults. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Catalog == nil {
		if o.CatalogPath != "" {
			cat, err := catalog.LoadFile(o.CatalogPath)
			if err != nil {
				return err
			}
			o.Catalog = cat
		} else {
			o.Catalog = catalog.Default()
		}
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// RepairOptions returns the engine options for this run.
func (o *Options) RepairOptions() repair.Options {
	return repair.Options{
		Catalog:   o.Catalog,
		Allocator: o.Allocator,
		Layout:    o.Layout,
	}
}

// CatalogHash identifies a catalog's content for cache keys.
func CatalogHash(cat *catalog.Catalog) string {
	data, err := json.Marshal(cat.File())
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}
