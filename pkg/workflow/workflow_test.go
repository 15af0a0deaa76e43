package workflow

import (
	"encoding/json"
	"math"
	"slices"
	"testing"
)

func TestIndex(t *testing.T) {
	nodes := []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "a", Label: "dup"}}
	edges := []Edge{
		{ID: "1", Source: "a", Target: "b"},
		{ID: "2", Source: "a", Target: "c"},
		{ID: "3", Source: "b", Target: "c"},
		{ID: "4", Source: "c", Target: "ghost"},
	}

	idx := NewIndex(nodes, edges)

	if got := idx.IDs(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("IDs() = %v", got)
	}
	if n, _ := idx.Node("a"); n.Label != "" {
		t.Error("first node with a duplicate ID should win")
	}
	if got := idx.Children("a"); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Children(a) = %v", got)
	}
	if got := idx.Parents("c"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Parents(c) = %v", got)
	}
	if idx.OutDegree("c") != 0 {
		t.Error("dangling edge should not be linked")
	}
	if got := idx.Roots(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Roots() = %v", got)
	}
	if !idx.HasEdge("b", "c") || idx.HasEdge("c", "b") {
		t.Error("HasEdge mismatch")
	}
	if got := idx.Incoming("c"); len(got) != 2 || got[0].ID != "2" {
		t.Errorf("Incoming(c) = %v", got)
	}
}

func TestPositionValid(t *testing.T) {
	tests := []struct {
		p    Position
		want bool
	}{
		{Position{0, 0}, true},
		{Position{-50, 1e6}, true},
		{Position{math.NaN(), 0}, false},
		{Position{0, math.Inf(1)}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("Valid(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	var n Node
	if n.HasPosition() {
		t.Error("node without position reports one")
	}
}

func TestGraphClone(t *testing.T) {
	g := Graph{
		Nodes: []Node{{ID: "a", Position: &Position{1, 2}, Config: map[string]any{"k": "v"}}},
	}

	c := g.Clone()
	c.Nodes[0].Position.X = 99
	c.Nodes[0].Config["k"] = "changed"

	if g.Nodes[0].Position.X != 1 || g.Nodes[0].Config["k"] != "v" {
		t.Error("Clone() shares state with the original")
	}
	if c.Edges == nil {
		t.Error("Clone() should never return nil edges")
	}
}

func TestGraphJSON(t *testing.T) {
	data := []byte(`{
		"nodes": [{"id": "a", "type": "webhook", "position": {"x": 10, "y": 20}}],
		"edges": [{"id": "e", "source": "a", "target": "a", "sourceHandle": "body"}],
		"explanation": "demo"
	}`)

	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if g.Nodes[0].Type != "webhook" || g.Nodes[0].Position.Y != 20 {
		t.Errorf("node = %+v", g.Nodes[0])
	}
	if g.Edges[0].SourceHandle != "body" || g.Edges[0].TargetHandle != "" {
		t.Errorf("edge = %+v", g.Edges[0])
	}
	if g.Explanation != "demo" {
		t.Errorf("explanation = %q", g.Explanation)
	}
}

func TestDisplayLabel(t *testing.T) {
	for _, tt := range []struct {
		n    Node
		want string
	}{
		{Node{ID: "a", Type: "code", Label: "Run"}, "Run"},
		{Node{ID: "a", Type: "code"}, "code"},
		{Node{ID: "a"}, "a"},
	} {
		if got := tt.n.DisplayLabel(); got != tt.want {
			t.Errorf("DisplayLabel() = %q, want %q", got, tt.want)
		}
	}
}
