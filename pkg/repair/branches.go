package repair

import (
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// RepairBranches gives every conditional node at most one "true" edge and at
// most one "false" edge. It only rewrites handles and drops surplus edges; it
// never adds nodes or edges.
//
// For each conditional node, outgoing edges are split into settled edges (the
// first edge carrying each polarity) and ambiguous ones. When two or more
// edges all carry the same handle they are indistinguishable and all count as
// ambiguous. Then:
//
//   - no outgoing edges: a branch_missing warning, nothing else
//   - exactly two edges, both ambiguous: the first becomes "true", the
//     second "false"
//   - otherwise each ambiguous edge takes the polarity suggested by its
//     target's label if that polarity is still free, else whichever polarity
//     is free; edges left over once both are taken are dropped
func RepairBranches(g workflow.Graph, env *Env) workflow.Graph {
	env.enter(StageBranches)

	byID := make(map[string]workflow.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}

	edges := make([]workflow.Edge, len(g.Edges))
	copy(edges, g.Edges)
	drop := make(map[int]bool)

	for _, n := range g.Nodes {
		if !env.Catalog.IsConditional(n.Type) {
			continue
		}
		var out []int
		for i, e := range edges {
			if e.Source == n.ID {
				out = append(out, i)
			}
		}
		if len(out) == 0 {
			env.warn(CodeBranchMissing, n.ID, "", "conditional %q has no outgoing branches", n.DisplayLabel())
			continue
		}
		repairNodeBranches(env, n, edges, out, byID, drop)
	}

	kept := make([]workflow.Edge, 0, len(edges))
	for i, e := range edges {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	g.Edges = kept
	return g
}

func repairNodeBranches(env *Env, n workflow.Node, edges []workflow.Edge, out []int, byID map[string]workflow.Node, drop map[int]bool) {
	filled := make(map[string]bool, 2)
	var ambiguous []int

	if len(out) >= 2 && sameHandle(edges, out) {
		ambiguous = out
	} else {
		for _, i := range out {
			h := edges[i].SourceHandle
			if isPolarity(h) && !filled[h] {
				filled[h] = true
				continue
			}
			ambiguous = append(ambiguous, i)
		}
	}
	if len(ambiguous) == 0 {
		return
	}

	assign := func(i int, h string) {
		if edges[i].SourceHandle != h {
			env.info(CodeBranchAssigned, n.ID, edges[i].ID, "edge to %s assigned to %q branch", edges[i].Target, h)
		}
		edges[i].SourceHandle = h
		filled[h] = true
	}

	if len(out) == 2 && len(ambiguous) == 2 {
		assign(ambiguous[0], workflow.HandleTrue)
		assign(ambiguous[1], workflow.HandleFalse)
		return
	}

	var rest []int
	for _, i := range ambiguous {
		if p := inferPolarity(env, byID[edges[i].Target]); p != "" && !filled[p] {
			assign(i, p)
			continue
		}
		rest = append(rest, i)
	}
	for _, i := range rest {
		switch {
		case !filled[workflow.HandleTrue]:
			assign(i, workflow.HandleTrue)
		case !filled[workflow.HandleFalse]:
			assign(i, workflow.HandleFalse)
		default:
			drop[i] = true
			env.warn(CodeBranchEdgeDropped, n.ID, edges[i].ID, "dropped surplus branch edge to %s: both branches are taken", edges[i].Target)
		}
	}
}

// inferPolarity guesses the branch an edge into target belongs to: label
// keywords first, then failure-handling node types on the false branch.
func inferPolarity(env *Env, target workflow.Node) string {
	if p := polarityFromLabel(target.Label); p != "" {
		return p
	}
	if env.Catalog.IsFailure(target.Type) {
		return workflow.HandleFalse
	}
	return ""
}

func sameHandle(edges []workflow.Edge, out []int) bool {
	first := edges[out[0]].SourceHandle
	for _, i := range out[1:] {
		if edges[i].SourceHandle != first {
			return false
		}
	}
	return true
}
