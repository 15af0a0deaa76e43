package workflow

import (
	"maps"
	"math"
	"slices"
)

// =============================================================================
// Handles - Canonical Port Names
// =============================================================================

// Canonical port names used on edges after normalization.
const (
	HandleOutput  = "output"
	HandleInput   = "input"
	HandleTrue    = "true"
	HandleFalse   = "false"
	HandleDefault = "default"
)

// =============================================================================
// Position
// =============================================================================

// Position is a node's top-left corner on the editor canvas.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Valid reports whether both coordinates are finite numbers.
func (p Position) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// =============================================================================
// Node
// =============================================================================

// Node is one step of a workflow graph.
//
// Type may be empty, unknown, or an alias on input; after a repair pass it is
// always a type known to the catalog. Config is an open map that the engine
// never interprets.
type Node struct {
	ID       string         `json:"id" bson:"id"`
	Type     string         `json:"type,omitempty" bson:"type,omitempty"`
	Label    string         `json:"label,omitempty" bson:"label,omitempty"`
	Category string         `json:"category,omitempty" bson:"category,omitempty"`
	Icon     string         `json:"icon,omitempty" bson:"icon,omitempty"`
	Position *Position      `json:"position,omitempty" bson:"position,omitempty"`
	Config   map[string]any `json:"config,omitempty" bson:"config,omitempty"`
}

// HasPosition reports whether the node carries a usable position.
func (n *Node) HasPosition() bool {
	return n.Position != nil && n.Position.Valid()
}

// DisplayLabel returns the label if set, otherwise the type, otherwise the ID.
func (n *Node) DisplayLabel() string {
	switch {
	case n.Label != "":
		return n.Label
	case n.Type != "":
		return n.Type
	}
	return n.ID
}

// Clone returns a deep copy of the node. Config values are copied shallowly.
func (n Node) Clone() Node {
	if n.Position != nil {
		p := *n.Position
		n.Position = &p
	}
	if n.Config != nil {
		n.Config = maps.Clone(n.Config)
	}
	return n
}

// =============================================================================
// Edge
// =============================================================================

// Edge is a directed connection between two node ports.
// SourceHandle and TargetHandle are semantic port names, not coordinates.
type Edge struct {
	ID           string `json:"id" bson:"id"`
	Source       string `json:"source" bson:"source"`
	Target       string `json:"target" bson:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" bson:"source_handle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" bson:"target_handle,omitempty"`
}

// Key returns the source|target|sourceHandle composite used for
// deduplicating edges that carry no ID.
func (e Edge) Key() string {
	return e.Source + "|" + e.Target + "|" + e.SourceHandle
}

// =============================================================================
// Graph
// =============================================================================

// Graph is a workflow: nodes, edges, and an optional free-text explanation
// attached by generators. Nodes and edges are always processed as a pair.
type Graph struct {
	Nodes       []Node `json:"nodes" bson:"nodes"`
	Edges       []Edge `json:"edges" bson:"edges"`
	Explanation string `json:"explanation,omitempty" bson:"explanation,omitempty"`
}

// Clone returns a deep copy of the graph so that stages can never mutate a
// caller-owned graph.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes:       make([]Node, len(g.Nodes)),
		Edges:       slices.Clone(g.Edges),
		Explanation: g.Explanation,
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return out
}

// NodeIDs returns the set of node IDs in the graph.
func (g Graph) NodeIDs() map[string]bool {
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	return ids
}

// EdgeIDs returns the set of edge IDs in the graph.
func (g Graph) EdgeIDs() map[string]bool {
	ids := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		ids[e.ID] = true
	}
	return ids
}
