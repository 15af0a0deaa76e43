package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmend/pkg/errors"
	wfio "github.com/matzehuels/flowmend/pkg/io"
	"github.com/matzehuels/flowmend/pkg/repair"
)

func (c *CLI) validateCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate [workflow.json]",
		Short: "Check a workflow against the structural invariants",
		Long: `Check a workflow against the structural invariants without changing it.

Exits non-zero when any invariant is violated. Run 'flowmend repair' to
fix the reported problems.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print violations as JSON")

	return cmd
}

func (c *CLI) runValidate(ctx context.Context, input string, asJSON bool) error {
	g, err := wfio.ImportJSON(input)
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	cat, err := c.loadCatalog(cfg)
	if err != nil {
		return err
	}

	violations := repair.ValidateWith(g, repair.Options{Catalog: cat, Layout: cfg.Layout})
	loggerFromContext(ctx).Debug("validated", "path", input, "violations", len(violations))

	if asJSON {
		if violations == nil {
			violations = []repair.Violation{}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(violations); err != nil {
			return err
		}
	} else {
		printViolations(violations)
	}

	if len(violations) > 0 {
		if !asJSON {
			printNewline()
			printNextStep("Fix", fmt.Sprintf("%s repair %s", appName, input))
		}
		return errors.New(errors.ErrCodeInvalidInput, "%d invariant violation(s)", len(violations))
	}
	return nil
}
