package repair

import (
	"maps"

	"github.com/matzehuels/flowmend/pkg/workflow"
)

// Default messages written into the config of split log sinks.
const (
	SuccessSinkMessage = "Workflow completed successfully"
	FailureSinkMessage = "Workflow failed"
)

// WireLogSink keeps log-sink nodes pure terminal collectors.
//
// For every log sink, edges from a trigger into the sink and edges leaving the
// sink are removed. When the graph holds exactly one sink, every terminal
// node is then wired into it. A terminal is any node other than a trigger or
// the sink whose outgoing edges, if any, all lead into the sink.
// If the terminals include both failure-handling nodes and other nodes, the
// sink is split: the original becomes the success sink and a new failure sink
// is added beside it, each fed by its own kind of terminal. Existing pairings
// are never duplicated.
func WireLogSink(g workflow.Graph, env *Env) (workflow.Graph, error) {
	env.enter(StageSink)

	triggers := make(map[string]bool)
	sinks := make(map[string]bool)
	var sinkIDs []string
	for _, n := range g.Nodes {
		if env.Catalog.IsTrigger(n) {
			triggers[n.ID] = true
		}
		if env.Catalog.IsLogSink(n.Type) {
			sinks[n.ID] = true
			sinkIDs = append(sinkIDs, n.ID)
		}
	}
	if len(sinkIDs) == 0 {
		return g, nil
	}

	edges := make([]workflow.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		switch {
		case sinks[e.Target] && triggers[e.Source]:
			env.info(CodeSinkEdgeRemoved, e.Target, e.ID, "removed edge from trigger %s into log sink", e.Source)
		case sinks[e.Source]:
			env.info(CodeSinkEdgeRemoved, e.Source, e.ID, "removed edge leaving log sink towards %s", e.Target)
		default:
			edges = append(edges, e)
		}
	}
	g.Edges = edges
	if len(sinkIDs) != 1 {
		return g, nil
	}
	sinkID := sinkIDs[0]

	hasOutgoing := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		if e.Target != sinkID {
			hasOutgoing[e.Source] = true
		}
	}
	var successes, failures []workflow.Node
	for _, n := range g.Nodes {
		if hasOutgoing[n.ID] || triggers[n.ID] || n.ID == sinkID {
			continue
		}
		if env.Catalog.IsFailure(n.Type) {
			failures = append(failures, n)
		} else {
			successes = append(successes, n)
		}
	}
	if len(successes) == 0 && len(failures) == 0 {
		return g, nil
	}

	if len(successes) == 0 || len(failures) == 0 {
		return wire(g, env, sinkID, append(successes, failures...))
	}

	g, failureID, err := splitSink(g, env, sinkID)
	if err != nil {
		return workflow.Graph{}, err
	}
	if g, err = wire(g, env, sinkID, successes); err != nil {
		return workflow.Graph{}, err
	}
	return wire(g, env, failureID, failures)
}

// splitSink turns the sink into the success sink and appends a failure sink.
// Both are offset horizontally from the original position and then moved
// clear of other nodes. Every remaining edge into the original sink is
// removed.
func splitSink(g workflow.Graph, env *Env, sinkID string) (workflow.Graph, string, error) {
	id, err := env.Alloc.Allocate("node", g.NodeIDs())
	if err != nil {
		return g, "", err
	}

	edges := make([]workflow.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e.Target == sinkID {
			env.info(CodeSinkEdgeRemoved, sinkID, e.ID, "removed edge from %s into log sink before split", e.Source)
			continue
		}
		edges = append(edges, e)
	}

	nodes := make([]workflow.Node, len(g.Nodes), len(g.Nodes)+1)
	copy(nodes, g.Nodes)
	si := -1
	for i := range nodes {
		if nodes[i].ID == sinkID {
			si = i
			break
		}
	}
	sink := nodes[si]

	half := (env.Layout.NodeWidth + env.Layout.Padding) / 2
	origin := workflow.Position{X: env.Layout.OriginX, Y: env.Layout.OriginY}
	if sink.HasPosition() {
		origin = *sink.Position
	}

	success := sink.Clone()
	success.Config = withMessage(success.Config, SuccessSinkMessage, "success")
	success.Position = &workflow.Position{X: origin.X - half, Y: origin.Y}

	failure := sink.Clone()
	failure.ID = id
	failure.Label = failureLabel(sink.Label)
	failure.Config = withMessage(failure.Config, FailureSinkMessage, "failure")
	failure.Position = &workflow.Position{X: origin.X + half, Y: origin.Y}

	nodes[si] = success
	placeClear(nodes, si, env.Layout)
	nodes = append(nodes, failure)
	placeClear(nodes, len(nodes)-1, env.Layout)

	env.info(CodeSinkSplit, sinkID, "", "split log sink into success sink %s and failure sink %s", sinkID, id)
	g.Nodes, g.Edges = nodes, edges
	return g, id, nil
}

// wire adds an edge from every terminal into sink unless one already exists.
func wire(g workflow.Graph, env *Env, sinkID string, terminals []workflow.Node) (workflow.Graph, error) {
	idx := workflow.NewIndex(g.Nodes, g.Edges)
	sink, _ := idx.Node(sinkID)
	targetHandle := env.Catalog.PrimaryInput(sink.Type)

	edgeIDs := g.EdgeIDs()
	edges := g.Edges
	for _, t := range terminals {
		if idx.HasEdge(t.ID, sinkID) {
			continue
		}
		id, err := env.Alloc.Allocate("edge", edgeIDs)
		if err != nil {
			return workflow.Graph{}, err
		}
		edges = append(edges, workflow.Edge{
			ID:           id,
			Source:       t.ID,
			Target:       sinkID,
			SourceHandle: defaultSourceHandle(env, t.Type),
			TargetHandle: targetHandle,
		})
		env.info(CodeSinkWired, t.ID, id, "wired terminal %q into log sink", t.DisplayLabel())
	}
	g.Edges = edges
	return g, nil
}

func defaultSourceHandle(env *Env, typ string) string {
	switch {
	case env.Catalog.IsConditional(typ):
		return workflow.HandleTrue
	case env.Catalog.IsSwitch(typ):
		return workflow.HandleDefault
	}
	return workflow.HandleOutput
}

// placeClear moves nodes[i] right until it overlaps no other node.
func placeClear(nodes []workflow.Node, i int, cfg LayoutConfig) {
	others := make([]workflow.Position, 0, len(nodes)-1)
	for j := range nodes {
		if j != i && nodes[j].HasPosition() {
			others = append(others, *nodes[j].Position)
		}
	}
	p, _ := settle(*nodes[i].Position, others, cfg)
	nodes[i].Position = &p
}

func withMessage(cfg map[string]any, message, status string) map[string]any {
	out := make(map[string]any, len(cfg)+2)
	maps.Copy(out, cfg)
	out["message"] = message
	out["status"] = status
	return out
}

func failureLabel(label string) string {
	if label == "" {
		return "Log Failure"
	}
	return label + " (failure)"
}
