package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

func (c *CLI) catalogCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the node types known to the catalog",
		Long: `List the node types known to the catalog.

The built-in catalog can be extended with --catalog or the [catalog] section
of flowmend.toml; override types and aliases win over built-in ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.catalogFromConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, catalogTable(cat, category))
			printDetail("fallback type: %s", cat.Fallback())
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list types in this category")
	cmd.AddCommand(c.catalogResolveCommand())

	return cmd
}

func (c *CLI) catalogResolveCommand() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "resolve [type]",
		Short: "Show how a declared node type resolves",
		Long: `Show how a declared node type resolves against the catalog.

Pass an empty type with --label to see label-based inference.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			declared := ""
			if len(args) == 1 {
				declared = args[0]
			}
			if strings.TrimSpace(declared) == "" && strings.TrimSpace(label) == "" {
				return errors.New(errors.ErrCodeInvalidInput, "a type or --label is required")
			}
			cat, err := c.catalogFromConfig()
			if err != nil {
				return err
			}
			printResolution(cat, cat.Resolve(declared, label), declared)
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "node label used when the type is empty")

	return cmd
}

func (c *CLI) catalogFromConfig() (*catalog.Catalog, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return c.loadCatalog(cfg)
}

// catalogTable renders the catalog's types sorted by category then type.
func catalogTable(cat *catalog.Catalog, category string) string {
	types := cat.Types()
	sort.SliceStable(types, func(i, j int) bool {
		if types[i].Category != types[j].Category {
			return types[i].Category < types[j].Category
		}
		return types[i].Type < types[j].Type
	})

	var rows [][]string
	for _, t := range types {
		if category != "" && !strings.EqualFold(t.Category, category) {
			continue
		}
		role := string(t.Role)
		if role == "" {
			role = "—"
		}
		rows = append(rows, []string{t.Type, t.Label, t.Category, role, strings.Join(t.InputPorts, ", ")})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	fallback := cat.Fallback()

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Type", "Label", "Category", "Role", "Inputs").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 && row < len(rows) && rows[row][0] == fallback {
				return cellStyle.Foreground(colorCyan)
			}
			if col >= 2 {
				return cellStyle.Foreground(colorGray)
			}
			return cellStyle
		}).
		Render()
}

func printResolution(cat *catalog.Catalog, res catalog.Resolution, declared string) {
	printKeyValue("declared", fmt.Sprintf("%q", declared))
	printKeyValue("resolved", StyleHighlight.Render(res.Type))
	printKeyValue("method", string(res.Method))
	if res.Family != "" {
		printKeyValue("family", res.Family)
	}
	if t, ok := cat.Lookup(res.Type); ok {
		printKeyValue("label", t.Label)
		printKeyValue("category", t.Category)
		if len(t.InputPorts) > 0 {
			printKeyValue("inputs", strings.Join(t.InputPorts, ", "))
		}
	}
}
