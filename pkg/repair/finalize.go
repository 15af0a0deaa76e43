package repair

import (
	"slices"
	"strings"

	"github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// DuplicateIdentifierError reports node or edge identifiers that are still
// shared after deduplication. It always indicates a defect in an earlier
// stage; callers must discard the graph.
type DuplicateIdentifierError struct {
	NodeIDs []string
	EdgeIDs []string
}

func (e *DuplicateIdentifierError) Error() string {
	var parts []string
	if len(e.NodeIDs) > 0 {
		parts = append(parts, "nodes "+strings.Join(e.NodeIDs, ", "))
	}
	if len(e.EdgeIDs) > 0 {
		parts = append(parts, "edges "+strings.Join(e.EdgeIDs, ", "))
	}
	return "duplicate identifiers remain: " + strings.Join(parts, "; ")
}

// Unwrap exposes the coded error so errors.Is and errors.GetCode see
// DUPLICATE_IDENTIFIER.
func (e *DuplicateIdentifierError) Unwrap() error {
	return &errors.Error{Code: errors.ErrCodeDuplicateIdentifier, Message: e.Error()}
}

// Finalize removes duplicate nodes and edges and verifies that every
// identifier is unique.
//
// Nodes are deduplicated first-seen-wins by ID. Edges whose endpoints are not
// live nodes are dropped. An edge is a duplicate when an earlier edge has the
// same source|target|sourceHandle key; a surviving edge whose ID is empty or
// already taken gets a fresh one instead of being dropped. Finally
// [CheckIntegrity] runs; a failure there is fatal.
func Finalize(g workflow.Graph, env *Env) (workflow.Graph, error) {
	env.enter(StageFinalize)

	live := make(map[string]bool, len(g.Nodes))
	nodes := make([]workflow.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if live[n.ID] {
			env.info(CodeDuplicateNodeDropped, n.ID, "", "dropped duplicate node %q", n.ID)
			continue
		}
		live[n.ID] = true
		nodes = append(nodes, n)
	}

	seenKeys := make(map[string]bool, len(g.Edges))
	taken := make(map[string]bool, len(g.Edges))
	edges := make([]workflow.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if !live[e.Source] || !live[e.Target] {
			env.info(CodeDanglingEdgeDropped, "", e.ID, "dropped edge %s -> %s: unknown endpoint", e.Source, e.Target)
			continue
		}
		if seenKeys[e.Key()] {
			env.info(CodeDuplicateEdgeDropped, "", e.ID, "dropped duplicate edge %s", e.Key())
			continue
		}
		seenKeys[e.Key()] = true
		edges = append(edges, e)
	}
	for i := range edges {
		if id := edges[i].ID; id != "" && !taken[id] {
			taken[id] = true
			continue
		}
		old := edges[i].ID
		id, err := env.Alloc.Allocate("edge", reserved(edges, taken))
		if err != nil {
			return workflow.Graph{}, err
		}
		taken[id] = true
		edges[i].ID = id
		env.info(CodeEdgeIDReallocated, "", id, "edge id %q reallocated", old)
	}

	out := workflow.Graph{Nodes: nodes, Edges: edges, Explanation: g.Explanation}
	if err := CheckIntegrity(out); err != nil {
		return workflow.Graph{}, err
	}
	return out, nil
}

// reserved returns every ID in use or still to be claimed by a later edge, so
// a reallocated ID never steals one further down the list.
func reserved(edges []workflow.Edge, taken map[string]bool) map[string]bool {
	set := make(map[string]bool, len(edges)+len(taken))
	for id := range taken {
		set[id] = true
	}
	for _, e := range edges {
		if e.ID != "" {
			set[e.ID] = true
		}
	}
	return set
}

// CheckIntegrity returns a *DuplicateIdentifierError if any node ID or edge
// ID occurs more than once.
func CheckIntegrity(g workflow.Graph) error {
	nodeDups := duplicates(len(g.Nodes), func(i int) string { return g.Nodes[i].ID })
	edgeDups := duplicates(len(g.Edges), func(i int) string { return g.Edges[i].ID })
	if len(nodeDups) == 0 && len(edgeDups) == 0 {
		return nil
	}
	return &DuplicateIdentifierError{NodeIDs: nodeDups, EdgeIDs: edgeDups}
}

func duplicates(n int, id func(int) string) []string {
	count := make(map[string]int, n)
	var dups []string
	for i := range n {
		k := id(i)
		count[k]++
		if count[k] == 2 {
			dups = append(dups, k)
		}
	}
	slices.Sort(dups)
	return dups
}
