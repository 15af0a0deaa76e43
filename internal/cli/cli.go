// Package cli implements the flowmend command-line interface.
//
// Commands:
//   - repair: repair a workflow file and write the result (json, dot, svg)
//   - validate: list invariant violations without changing anything
//   - render: draw a workflow as Graphviz DOT or SVG
//   - inspect: browse the diagnostics of a repair interactively
//   - catalog: list node types and resolve a declared type
//   - serve: run the HTTP API
//   - cache: manage the local repair cache
//
// All commands read flowmend.toml (see internal/config) and accept
// --verbose (-v) for debug logging.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmend/internal/config"
	"github.com/matzehuels/flowmend/pkg/buildinfo"
	"github.com/matzehuels/flowmend/pkg/cache"
	"github.com/matzehuels/flowmend/pkg/pipeline"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "flowmend"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath  string
	catalogPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Flowmend repairs and normalizes generated workflow graphs",
		Long: `Flowmend takes workflow graphs produced by generators (nodes, edges, and
optional positions) and turns them into graphs an editor can load: one
trigger, resolved node types, wired branch handles, a log sink fed by the
workflow, and a non-overlapping layout.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(withLogger(ctx, c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./flowmend.toml or ~/.config/flowmend/flowmend.toml)")
	root.PersistentFlags().StringVar(&c.catalogPath, "catalog", "", "catalog override file (TOML)")

	root.AddCommand(c.repairCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Runner Factory
// =============================================================================

// loadConfig reads the --config file, or the first flowmend.toml found.
// --catalog overrides the catalog path from the file.
func (c *CLI) loadConfig() (config.Config, error) {
	var (
		cfg  config.Config
		path string
		err  error
	)
	if c.configPath != "" {
		path = c.configPath
		cfg, err = config.Load(path)
	} else {
		cfg, path, err = config.Find()
	}
	if err != nil {
		return cfg, err
	}
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	if c.catalogPath != "" {
		cfg.Catalog.Path = c.catalogPath
	}
	return cfg, nil
}

// loadCatalog returns the built-in catalog extended by cfg's override file.
func (c *CLI) loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	c.Logger.Debug("loading catalog", "path", cfg.Catalog.Path)
	return catalog.LoadFile(cfg.Catalog.Path)
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, noCache bool) (*pipeline.Runner, error) {
	cch, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cch, c.Logger), nil
}

func newCache(ctx context.Context, cfg config.Cache, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	return config.OpenCache(ctx, cfg)
}

// pipelineOptions builds run options shared by the repair-based commands.
func (c *CLI) pipelineOptions(cfg config.Config) (pipeline.Options, error) {
	cat, err := c.loadCatalog(cfg)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Catalog:  cat,
		Layout:   cfg.Layout,
		CacheTTL: cfg.Cache.TTL.Duration,
		Logger:   c.Logger,
	}, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatJSON}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
