package io

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

func TestReadJSON(t *testing.T) {
	in := `{
		"nodes": [{"id": "a", "type": "webhook"}, {"id": "b"}],
		"edges": [
			{"id": "e1", "source": "a", "target": "b", "targetHandle": "body"},
			{"from": "b", "to": "a"}
		],
		"explanation": "generated"
	}`

	g, err := ReadJSON(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}

	if len(g.Nodes) != 2 || len(g.Edges) != 2 {
		t.Fatalf("got %d nodes, %d edges", len(g.Nodes), len(g.Edges))
	}
	if e := g.Edges[0]; e.Source != "a" || e.Target != "b" || e.TargetHandle != "body" {
		t.Errorf("edge 0 = %+v", e)
	}
	if e := g.Edges[1]; e.Source != "b" || e.Target != "a" {
		t.Errorf("from/to edge = %+v", e)
	}
	if g.Explanation != "generated" {
		t.Errorf("explanation = %q", g.Explanation)
	}
}

func TestReadJSON_Errors(t *testing.T) {
	if _, err := ReadJSON(strings.NewReader("{not json")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("malformed input: %v", err)
	}

	var b strings.Builder
	b.WriteString(`{"nodes":[`)
	for i := range errors.MaxGraphNodes + 1 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"id":"n"}`)
	}
	b.WriteString(`],"edges":[]}`)
	if _, err := ReadJSON(strings.NewReader(b.String())); !errors.Is(err, errors.ErrCodeTooLarge) {
		t.Errorf("oversized input: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			{ID: "a", Type: "code", Position: &workflow.Position{X: 1, Y: 2}, Config: map[string]any{"k": "v"}},
		},
	}
	path := filepath.Join(t.TempDir(), "graph.json")

	if err := ExportJSON(g, path); err != nil {
		t.Fatalf("ExportJSON() error: %v", err)
	}
	back, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON() error: %v", err)
	}

	if len(back.Nodes) != 1 || back.Nodes[0].Position.Y != 2 || back.Nodes[0].Config["k"] != "v" {
		t.Errorf("round trip lost data: %+v", back.Nodes)
	}
	if back.Edges == nil {
		t.Error("edges should decode as an empty slice")
	}
}

func TestWriteJSON_EmptyArrays(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(workflow.Graph{}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"nodes": []`) || !strings.Contains(buf.String(), `"edges": []`) {
		t.Errorf("output = %s", buf.String())
	}
}

func TestImportJSON_Missing(t *testing.T) {
	_, err := ImportJSON(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("ImportJSON() error = %v", err)
	}
}
