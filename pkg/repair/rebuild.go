package repair

import (
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// Stage names, in execution order.
const (
	StageRebuild   = "rebuild"
	StageResolve   = "resolve"
	StageLinearize = "linearize"
	StageLayout    = "layout"
	StageHandles   = "handles"
	StageBranches  = "branches"
	StageSink      = "sink"
	StageFinalize  = "finalize"
)

// RebuildIDs mints a fresh identifier for every node and edge.
//
// Each input node gets a new "node_" id and the old id is remembered. When
// several nodes share an old id, the first one wins and the rest are dropped
// as duplicates, since edges could not tell them apart anyway. Nodes with an
// empty id each get their own fresh id. Edges are rewritten through the
// old-to-new map; an edge whose source or target was never seen is dropped.
//
// Allocation failure is the only error.
func RebuildIDs(g workflow.Graph, env *Env) (workflow.Graph, error) {
	env.enter(StageRebuild)

	nodeIDs := make(map[string]bool, len(g.Nodes))
	remap := make(map[string]string, len(g.Nodes))
	nodes := make([]workflow.Node, 0, len(g.Nodes))

	for _, n := range g.Nodes {
		if n.ID != "" {
			if _, seen := remap[n.ID]; seen {
				env.info(CodeDuplicateNodeDropped, n.ID, "", "dropped node %q: id already used by an earlier node", n.ID)
				continue
			}
		}
		id, err := env.Alloc.Allocate("node", nodeIDs)
		if err != nil {
			return workflow.Graph{}, err
		}
		if n.ID != "" {
			remap[n.ID] = id
		}
		n.ID = id
		nodes = append(nodes, n)
	}

	edgeIDs := make(map[string]bool, len(g.Edges))
	edges := make([]workflow.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		src, okSrc := remap[e.Source]
		dst, okDst := remap[e.Target]
		if !okSrc || !okDst {
			env.info(CodeDanglingEdgeDropped, "", e.ID, "dropped edge %s -> %s: unknown endpoint", e.Source, e.Target)
			continue
		}
		id, err := env.Alloc.Allocate("edge", edgeIDs)
		if err != nil {
			return workflow.Graph{}, err
		}
		e.ID, e.Source, e.Target = id, src, dst
		edges = append(edges, e)
	}

	return workflow.Graph{Nodes: nodes, Edges: edges, Explanation: g.Explanation}, nil
}
