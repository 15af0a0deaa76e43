package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmend/pkg/errors"
	wfio "github.com/matzehuels/flowmend/pkg/io"
	"github.com/matzehuels/flowmend/pkg/pipeline"
)

// repairOpts holds the flags of the repair command.
type repairOpts struct {
	output   string
	formats  string
	noCache  bool
	refresh  bool
	strict   bool
	detailed bool
	all      bool
}

func (c *CLI) repairCommand() *cobra.Command {
	var opts repairOpts

	cmd := &cobra.Command{
		Use:   "repair [workflow.json]",
		Short: "Repair a generated workflow graph",
		Long: `Repair a generated workflow graph.

The input is a JSON document with "nodes" and "edges". The repaired graph
is written next to the input as <name>.repaired.<format> unless --output is
given. Use --output - to write a single artifact to stdout.

Results are cached locally; --no-cache disables the cache and --refresh
recomputes and overwrites the cached entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(opts.formats)
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			if opts.output == "-" && len(formats) != 1 {
				return errors.New(errors.ErrCodeInvalidInput, "--output - needs exactly one format")
			}
			return c.runRepair(cmd.Context(), args[0], formats, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format), base path (multiple), or - for stdout")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): json (default), dot, svg (comma-separated)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail if the repaired graph still violates an invariant")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node IDs, types, and positions in dot/svg output")
	cmd.Flags().BoolVar(&opts.all, "all", false, "list every diagnostic instead of a summary")

	return cmd
}

func (c *CLI) runRepair(ctx context.Context, input string, formats []string, opts repairOpts) error {
	logger := loggerFromContext(ctx)

	g, err := wfio.ImportJSON(input)
	if err != nil {
		return err
	}
	logger.Debug("loaded workflow", "path", input, "nodes", len(g.Nodes), "edges", len(g.Edges))

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	popts, err := c.pipelineOptions(cfg)
	if err != nil {
		return err
	}
	popts.Formats = formats
	popts.Strict = opts.strict
	popts.Refresh = opts.refresh
	popts.Detailed = opts.detailed

	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Repairing workflow...")
	spinner.Start()

	prog := newProgress(logger)
	res, err := runner.Execute(ctx, g, popts)
	if err != nil {
		spinner.StopWithError("Repair failed")
		return err
	}
	spinner.Stop()
	prog.done("Repaired workflow")
	logStages(logger, res.Stages)

	if opts.output == "-" {
		_, err := os.Stdout.Write(res.Artifacts[formats[0]])
		return err
	}

	paths, err := writeArtifacts(res.Artifacts, formats, input, opts.output)
	if err != nil {
		return err
	}

	printSuccess("Repair complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats, res.CacheHit)
	printNewline()
	printDiagnostics(res.Diagnostics, opts.all)
	if len(res.Violations) > 0 {
		printNewline()
		printViolations(res.Violations)
	}
	return nil
}

// basePath derives the base output path. Without an output it is the input
// path minus its extension plus ".repaired"; a known format extension is
// stripped from an explicit output.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".repaired"
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeArtifacts writes each requested format and returns the paths in
// format order. A single format with an explicit output is written to that
// exact path.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	base := basePath(output, input)
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + "." + f
		if len(formats) == 1 && output != "" {
			path = output
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
