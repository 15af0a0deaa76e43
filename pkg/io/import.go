package io

import (
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// wireGraph mirrors workflow.Graph but tolerates the "from"/"to" edge keys
// used by other graph tools.
type wireGraph struct {
	Nodes       []workflow.Node `json:"nodes"`
	Edges       []wireEdge      `json:"edges"`
	Explanation string          `json:"explanation,omitempty"`
}

type wireEdge struct {
	workflow.Edge
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// ReadJSON decodes a workflow graph from r.
//
// ReadJSON returns an INVALID_FORMAT error if the JSON is malformed and a
// TOO_LARGE error if the graph exceeds errors.MaxGraphNodes or
// errors.MaxGraphEdges. It does not check IDs, types, or edge endpoints;
// that is the repair engine's job. ReadJSON does not close r.
func ReadJSON(r io.Reader) (workflow.Graph, error) {
	var data wireGraph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return workflow.Graph{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode workflow")
	}
	if err := errors.ValidateGraphSize(len(data.Nodes), len(data.Edges)); err != nil {
		return workflow.Graph{}, err
	}

	g := workflow.Graph{
		Nodes:       data.Nodes,
		Edges:       make([]workflow.Edge, len(data.Edges)),
		Explanation: data.Explanation,
	}
	if g.Nodes == nil {
		g.Nodes = []workflow.Node{}
	}
	for i, e := range data.Edges {
		if e.Source == "" {
			e.Source = e.From
		}
		if e.Target == "" {
			e.Target = e.To
		}
		g.Edges[i] = e.Edge
	}
	return g, nil
}

// ImportJSON reads a JSON file at path and returns the decoded graph.
func ImportJSON(path string) (workflow.Graph, error) {
	if err := errors.ValidatePath(path); err != nil {
		return workflow.Graph{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return workflow.Graph{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}
