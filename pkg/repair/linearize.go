package repair

import (
	"slices"

	"github.com/matzehuels/flowmend/pkg/workflow"
)

// Linearize reduces the graph to a single entry point and, for graphs without
// branching nodes, to a strict trigger -> step -> step chain.
//
// Triggers are classified by the catalog's trigger rules. With no trigger the
// graph is returned unchanged. Otherwise the primary trigger is the first
// preferred trigger (form submissions by default) or else the first trigger,
// and every other trigger is dropped together with its edges.
//
// The kept nodes are ordered by a greedy walk from the primary trigger that
// always follows the first unvisited successor; nodes the walk never reaches
// follow in input order.
//
// If any kept node is a conditional or switch, edges between kept nodes are
// preserved verbatim and only the node order changes. Otherwise each
// consecutive pair in walk order is connected, reusing the first existing
// edge between the pair and synthesizing one when none exists. Edges that
// are not part of the chain are preserved.
//
// Log sinks take no part in the walk or the chain. They follow the walked
// nodes in input order and are wired to the real terminals by WireLogSink.
func Linearize(g workflow.Graph, env *Env) (workflow.Graph, error) {
	env.enter(StageLinearize)

	primary := -1
	var triggers []int
	for i, n := range g.Nodes {
		if !env.Catalog.IsTrigger(n) {
			continue
		}
		triggers = append(triggers, i)
		if primary < 0 && env.Catalog.IsPreferredTrigger(n) {
			primary = i
		}
	}
	if len(triggers) == 0 {
		return g, nil
	}
	if primary < 0 {
		primary = triggers[0]
	}

	kept := make([]workflow.Node, 0, len(g.Nodes))
	live := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if i != primary && env.Catalog.IsTrigger(n) {
			env.warn(CodeTriggerDropped, n.ID, "", "dropped secondary trigger %q; %q is the entry point",
				n.DisplayLabel(), g.Nodes[primary].DisplayLabel())
			continue
		}
		kept = append(kept, n)
		live[n.ID] = true
	}

	keptEdges := make([]workflow.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if live[e.Source] && live[e.Target] {
			keptEdges = append(keptEdges, e)
		}
	}

	var steps []workflow.Node
	var sinks []string
	for _, n := range kept {
		if env.Catalog.IsLogSink(n.Type) {
			sinks = append(sinks, n.ID)
			continue
		}
		steps = append(steps, n)
	}
	// Edges touching a sink drop out of the index with the sink itself.
	chain := walkOrder(workflow.NewIndex(steps, keptEdges), g.Nodes[primary].ID)
	order := append(slices.Clip(chain), sinks...)

	byID := make(map[string]workflow.Node, len(kept))
	for _, n := range kept {
		byID[n.ID] = n
	}
	nodes := make([]workflow.Node, 0, len(order))
	branching := false
	for _, id := range order {
		n := byID[id]
		nodes = append(nodes, n)
		if env.Catalog.IsBranching(n.Type) {
			branching = true
		}
	}

	out := workflow.Graph{Nodes: nodes, Explanation: g.Explanation}
	if branching {
		out.Edges = keptEdges
		return out, nil
	}

	edges, err := chainEdges(chain, keptEdges, env)
	if err != nil {
		return workflow.Graph{}, err
	}
	out.Edges = edges
	return out, nil
}

// walkOrder returns every node ID of idx: first the greedy path from start,
// then the unreached nodes in input order.
func walkOrder(idx *workflow.Index, start string) []string {
	ids := idx.IDs()
	order := make([]string, 0, len(ids))
	visited := make(map[string]bool, len(ids))

	for cur := start; cur != ""; {
		visited[cur] = true
		order = append(order, cur)
		next := ""
		for _, child := range idx.Children(cur) {
			if !visited[child] {
				next = child
				break
			}
		}
		cur = next
	}
	for _, id := range ids {
		if !visited[id] {
			visited[id] = true
			order = append(order, id)
		}
	}
	return order
}

// chainEdges connects consecutive nodes of order, reusing existing edges, and
// appends all edges that were not used by the chain.
func chainEdges(order []string, edges []workflow.Edge, env *Env) ([]workflow.Edge, error) {
	existing := make(map[string]bool, len(edges))
	for _, e := range edges {
		existing[e.ID] = true
	}

	used := make([]bool, len(edges))
	out := make([]workflow.Edge, 0, len(edges)+len(order))
	for i := 0; i+1 < len(order); i++ {
		src, dst := order[i], order[i+1]
		found := -1
		for j, e := range edges {
			if !used[j] && e.Source == src && e.Target == dst {
				found = j
				break
			}
		}
		if found >= 0 {
			used[found] = true
			out = append(out, edges[found])
			continue
		}
		id, err := env.Alloc.Allocate("edge", existing)
		if err != nil {
			return nil, err
		}
		env.info(CodeChainEdgeAdded, "", id, "connected %s -> %s to complete the chain", src, dst)
		out = append(out, workflow.Edge{ID: id, Source: src, Target: dst})
	}
	for j, e := range edges {
		if !used[j] {
			out = append(out, e)
		}
	}
	return out, nil
}
