package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/flowmend/pkg/repair"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	detailBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

// =============================================================================
// DiagnosticsModel - Interactive diagnostics browser
// =============================================================================

// DiagnosticsModel is the bubbletea model for browsing the diagnostics of
// a repair. The detail pane shows the node or edge a diagnostic refers to
// as it looks in the repaired graph.
type DiagnosticsModel struct {
	All          repair.Diagnostics
	Visible      repair.Diagnostics
	WarningsOnly bool
	Cursor       int
	Offset       int
	Height       int

	nodes map[string]workflow.Node
	edges map[string]workflow.Edge
}

// NewDiagnosticsModel creates a browser over ds for the repaired graph g.
func NewDiagnosticsModel(ds repair.Diagnostics, g workflow.Graph) DiagnosticsModel {
	m := DiagnosticsModel{
		All:    ds,
		Height: 12,
		nodes:  make(map[string]workflow.Node, len(g.Nodes)),
		edges:  make(map[string]workflow.Edge, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		m.nodes[n.ID] = n
	}
	for _, e := range g.Edges {
		m.edges[e.ID] = e
	}
	m.filter()
	return m
}

func (m *DiagnosticsModel) filter() {
	if m.WarningsOnly {
		m.Visible = m.All.Warnings()
	} else {
		m.Visible = m.All
	}
	m.Cursor, m.Offset = 0, 0
}

func (m DiagnosticsModel) Init() tea.Cmd {
	return nil
}

func (m DiagnosticsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Visible)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "w":
			m.WarningsOnly = !m.WarningsOnly
			m.filter()
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-16, 5)
	}
	return m, nil
}

func (m DiagnosticsModel) View() string {
	var b strings.Builder

	title := "Repair Diagnostics"
	if m.WarningsOnly {
		title += " (warnings)"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  w toggle warnings  q quit"))
	b.WriteString("\n\n")

	if len(m.Visible) == 0 {
		b.WriteString(listDimStyle.Render("  nothing to show"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Visible))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		d := m.Visible[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, d.Stage, d.Code, truncate(d.Message, 60)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Stage", "Code", "Message").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Visible) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if m.Visible[idx].Severity == repair.SeverityWarning {
				base = base.Foreground(colorYellow)
			}
			if idx == m.Cursor {
				return base.Bold(true)
			}
			if col == 1 {
				return base.Foreground(colorGray)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(detailBoxStyle.Render(m.detail(m.Visible[m.Cursor])))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Visible))))

	return b.String()
}

// detail describes the selected diagnostic and what it points at.
func (m DiagnosticsModel) detail(d repair.Diagnostic) string {
	lines := []string{listSelectedStyle.Render(d.Message)}
	if d.NodeID != "" {
		if n, ok := m.nodes[d.NodeID]; ok {
			lines = append(lines, fmt.Sprintf("node  %s  %s (%s)", n.ID, n.DisplayLabel(), n.Type))
			if n.HasPosition() {
				lines = append(lines, fmt.Sprintf("      at (%.0f, %.0f)", n.Position.X, n.Position.Y))
			}
		} else {
			lines = append(lines, listDimStyle.Render("node  "+d.NodeID+" (not in repaired graph)"))
		}
	}
	if d.EdgeID != "" {
		if e, ok := m.edges[d.EdgeID]; ok {
			lines = append(lines, fmt.Sprintf("edge  %s  %s[%s] → %s[%s]", e.ID, e.Source, e.SourceHandle, e.Target, e.TargetHandle))
		} else {
			lines = append(lines, listDimStyle.Render("edge  "+d.EdgeID+" (not in repaired graph)"))
		}
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// Helpers
// =============================================================================

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
