package repair

import (
	"fmt"

	"github.com/matzehuels/flowmend/pkg/workflow"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

// Rule names reported by [Validate].
const (
	RuleUniqueNodeID     = "unique_node_id"
	RuleUniqueEdgeID     = "unique_edge_id"
	RuleEdgeEndpoints    = "edge_endpoints"
	RuleKnownType        = "known_type"
	RuleBranchHandles    = "branch_handles"
	RuleSinkFedByTrigger = "sink_fed_by_trigger"
	RulePosition         = "position"
	RuleOverlap          = "no_overlap"
)

// Violation is one broken graph invariant.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
	EdgeID  string `json:"edge_id,omitempty"`
}

func (v Violation) String() string { return v.Rule + ": " + v.Message }

// Validate checks g against the invariants every repaired graph satisfies,
// using the default layout geometry for overlap checks. A nil catalog means
// the built-in one. The output of [Repair] validates cleanly except for
// overlaps between nodes whose positions came with the input, which Repair
// never moves.
func Validate(g workflow.Graph, cat *catalog.Catalog) []Violation {
	return ValidateWith(g, Options{Catalog: cat})
}

// ValidateWith is like Validate but takes the catalog and layout geometry
// from opts.
func ValidateWith(g workflow.Graph, opts Options) []Violation {
	opts.SetDefaults()
	cat, cfg := opts.Catalog, opts.Layout
	var vs []Violation
	add := func(rule, nodeID, edgeID, format string, args ...any) {
		vs = append(vs, Violation{Rule: rule, Message: fmt.Sprintf(format, args...), NodeID: nodeID, EdgeID: edgeID})
	}

	nodes := make(map[string]workflow.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := nodes[n.ID]; dup {
			add(RuleUniqueNodeID, n.ID, "", "node id %q is used more than once", n.ID)
			continue
		}
		nodes[n.ID] = n
		if !cat.Known(n.Type) {
			add(RuleKnownType, n.ID, "", "node type %q is not in the catalog", n.Type)
		}
		if !n.HasPosition() {
			add(RulePosition, n.ID, "", "node %q has no valid position", n.DisplayLabel())
		}
	}

	edgeIDs := make(map[string]bool, len(g.Edges))
	branches := make(map[string]map[string]bool)
	for _, e := range g.Edges {
		if edgeIDs[e.ID] {
			add(RuleUniqueEdgeID, "", e.ID, "edge id %q is used more than once", e.ID)
		}
		edgeIDs[e.ID] = true

		src, okSrc := nodes[e.Source]
		dst, okDst := nodes[e.Target]
		if !okSrc || !okDst {
			add(RuleEdgeEndpoints, "", e.ID, "edge %s -> %s references a missing node", e.Source, e.Target)
			continue
		}
		if cat.IsConditional(src.Type) {
			if !isPolarity(e.SourceHandle) {
				add(RuleBranchHandles, src.ID, e.ID, "conditional edge has handle %q", e.SourceHandle)
			} else if branches[src.ID][e.SourceHandle] {
				add(RuleBranchHandles, src.ID, e.ID, "conditional has more than one %q edge", e.SourceHandle)
			} else {
				if branches[src.ID] == nil {
					branches[src.ID] = make(map[string]bool, 2)
				}
				branches[src.ID][e.SourceHandle] = true
			}
		}
		if cat.IsTrigger(src) && cat.IsLogSink(dst.Type) {
			add(RuleSinkFedByTrigger, dst.ID, e.ID, "log sink is fed directly by trigger %q", src.DisplayLabel())
		}
	}

	for i := range g.Nodes {
		a := g.Nodes[i]
		if !a.HasPosition() {
			continue
		}
		for j := i + 1; j < len(g.Nodes); j++ {
			b := g.Nodes[j]
			if b.HasPosition() && overlaps(*a.Position, *b.Position, cfg) {
				add(RuleOverlap, b.ID, "", "node %q overlaps %q", b.DisplayLabel(), a.DisplayLabel())
			}
		}
	}
	return vs
}
