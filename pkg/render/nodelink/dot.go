package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowmend/pkg/workflow"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the node ID, type, and position to each label.
	Detailed bool

	// Catalog decides node roles. Nil means the built-in catalog.
	Catalog *catalog.Catalog
}

// ToDOT converts a workflow graph to Graphviz DOT source. Nodes and edges
// are emitted in graph order, so the output is deterministic.
func ToDOT(g workflow.Graph, opts Options) string {
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		attrs := append([]string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}, roleAttrs(n, cat)...)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if label := edgeLabel(e); label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.Source, e.Target, label)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n workflow.Node, detailed bool) string {
	label := n.DisplayLabel()
	if !detailed {
		return label
	}
	parts := []string{label, "id: " + n.ID}
	if n.Type != "" {
		parts = append(parts, "type: "+n.Type)
	}
	if n.HasPosition() {
		parts = append(parts, fmt.Sprintf("at: %.0f,%.0f", n.Position.X, n.Position.Y))
	}
	return strings.Join(parts, "\n")
}

func roleAttrs(n workflow.Node, cat *catalog.Catalog) []string {
	switch {
	case cat.IsTrigger(n):
		return []string{"fillcolor=\"#d8f3dc\"", "penwidth=2"}
	case cat.IsConditional(n.Type), cat.IsSwitch(n.Type):
		return []string{"shape=diamond", "style=filled", "fillcolor=\"#fff3bf\""}
	case cat.IsLogSink(n.Type):
		return []string{"shape=note", "style=filled", "fillcolor=\"#e7f5ff\""}
	case cat.IsFailure(n.Type):
		return []string{"fillcolor=\"#ffe3e3\""}
	}
	return nil
}

// edgeLabel shows handles that differ from the plain output/input pair.
func edgeLabel(e workflow.Edge) string {
	var parts []string
	if e.SourceHandle != "" && e.SourceHandle != workflow.HandleOutput {
		parts = append(parts, e.SourceHandle)
	}
	if e.TargetHandle != "" && e.TargetHandle != workflow.HandleInput {
		parts = append(parts, "→ "+e.TargetHandle)
	}
	return strings.Join(parts, " ")
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with a plain
// viewBox anchored at the origin, so the SVG scales in a browser.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
