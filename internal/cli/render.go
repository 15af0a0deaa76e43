package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmend/internal/config"
	"github.com/matzehuels/flowmend/pkg/errors"
	wfio "github.com/matzehuels/flowmend/pkg/io"
	"github.com/matzehuels/flowmend/pkg/pipeline"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output   string
	format   string
	detailed bool
	repair   bool
	noCache  bool
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: pipeline.FormatSVG}

	cmd := &cobra.Command{
		Use:     "render [workflow.json]",
		Aliases: []string{"dot"},
		Short:   "Draw a workflow as Graphviz DOT or SVG",
		Long: `Draw a workflow as a node-link diagram.

The graph is drawn as-is unless --repair is given, in which case it is
repaired first. Conditional edges are labelled with their branch handle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != pipeline.FormatDOT && opts.format != pipeline.FormatSVG {
				return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be dot or svg)", opts.format)
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), dot")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node IDs, types, and positions")
	cmd.Flags().BoolVar(&opts.repair, "repair", false, "repair the workflow before drawing it")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching (with --repair)")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	g, err := wfio.ImportJSON(input)
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	popts, err := c.pipelineOptions(cfg)
	if err != nil {
		return err
	}

	if opts.repair {
		g, err = c.repairForRender(ctx, g, cfg, popts, opts.noCache)
		if err != nil {
			return err
		}
	}

	popts.Formats = []string{opts.format}
	popts.Detailed = opts.detailed

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", opts.format))
	spinner.Start()
	artifacts, err := pipeline.Render(ctx, g, popts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	data := artifacts[opts.format]
	logger.Debugf("Generated %s: %d bytes", opts.format, len(data))

	path := opts.output
	if path == "" {
		path = strings.TrimSuffix(input, filepath.Ext(input)) + "." + opts.format
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)
	}

	printSuccess("Render complete")
	printFile(path)
	return nil
}

func (c *CLI) repairForRender(ctx context.Context, g workflow.Graph, cfg config.Config, popts pipeline.Options, noCache bool) (workflow.Graph, error) {
	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return g, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	res, _, err := runner.Repair(ctx, g, popts)
	if err != nil {
		return g, err
	}
	return res.Graph, nil
}
