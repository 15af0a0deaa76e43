package repair

import (
	"github.com/matzehuels/flowmend/pkg/workflow"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

// ResolveTypes maps every node's declared type to a catalog type and backfills
// missing label, icon, and category. No node is ever removed; the worst case
// is the catalog's generic fallback type.
func ResolveTypes(g workflow.Graph, env *Env) workflow.Graph {
	env.enter(StageResolve)

	nodes := make([]workflow.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		resolved, res := env.Catalog.ResolveNode(n)
		nodes[i] = resolved
		if !res.Changed() {
			continue
		}
		if res.Method == catalog.MethodGenericFallback {
			env.warn(CodeTypeResolved, n.ID, "", "type %q resolved to %q (%s)", n.Type, res.Type, res.Method)
		} else {
			env.info(CodeTypeResolved, n.ID, "", "type %q resolved to %q (%s)", n.Type, res.Type, res.Method)
		}
	}
	g.Nodes = nodes
	return g
}
