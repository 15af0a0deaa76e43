package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/flowmend/pkg/workflow"
)

// WriteJSON encodes g as indented JSON and writes it to w. Nil node and edge
// slices are written as empty arrays.
func WriteJSON(g workflow.Graph, w io.Writer) error {
	if g.Nodes == nil {
		g.Nodes = []workflow.Node{}
	}
	if g.Edges == nil {
		g.Edges = []workflow.Edge{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(g workflow.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}
