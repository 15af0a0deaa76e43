package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	wfio "github.com/matzehuels/flowmend/pkg/io"
)

func (c *CLI) inspectCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "inspect [workflow.json]",
		Short: "Browse the fixes a repair applies",
		Long: `Repair a workflow in memory and browse the diagnostics interactively.

Nothing is written. Each diagnostic shows the node or edge it refers to as
it looks after repair; dropped nodes and edges are marked as such.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], noCache)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, noCache bool) error {
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
	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	res, _, err := runner.Repair(ctx, g, popts)
	if err != nil {
		return err
	}

	model := NewDiagnosticsModel(res.Diagnostics, res.Graph)
	_, err = tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}
