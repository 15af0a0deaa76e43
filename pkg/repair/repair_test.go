package repair

import (
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/idalloc"
	"github.com/matzehuels/flowmend/pkg/workflow"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

// =============================================================================
// Helpers
// =============================================================================

func node(id, typ, label string) workflow.Node {
	return workflow.Node{ID: id, Type: typ, Label: label}
}

func at(n workflow.Node, x, y float64) workflow.Node {
	n.Position = &workflow.Position{X: x, Y: y}
	return n
}

func edge(src, dst string) workflow.Edge {
	return workflow.Edge{ID: src + "-" + dst, Source: src, Target: dst}
}

func handled(src, dst, sh, th string) workflow.Edge {
	e := edge(src, dst)
	e.SourceHandle, e.TargetHandle = sh, th
	return e
}

func mustRepair(t *testing.T, g workflow.Graph) Result {
	t.Helper()
	res, err := Repair(g, Options{})
	if err != nil {
		t.Fatalf("Repair() error: %v", err)
	}
	if vs := Validate(res.Graph, nil); len(vs) > 0 {
		t.Fatalf("Repair() output has violations: %v", vs)
	}
	return res
}

func byLabel(g workflow.Graph) map[string]workflow.Node {
	out := make(map[string]workflow.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.Label] = n
	}
	return out
}

// edgeShape describes an edge by endpoint labels so that graphs with
// different IDs can be compared.
func edgeShape(g workflow.Graph) []string {
	labels := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		labels[n.ID] = n.Label
	}
	out := make([]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		out = append(out, fmt.Sprintf("%s -> %s [%s/%s]", labels[e.Source], labels[e.Target], e.SourceHandle, e.TargetHandle))
	}
	slices.Sort(out)
	return out
}

func findEdge(t *testing.T, g workflow.Graph, srcLabel, dstLabel string) workflow.Edge {
	t.Helper()
	nodes := byLabel(g)
	src, dst := nodes[srcLabel], nodes[dstLabel]
	for _, e := range g.Edges {
		if e.Source == src.ID && e.Target == dst.ID {
			return e
		}
	}
	t.Fatalf("no edge %q -> %q in %v", srcLabel, dstLabel, edgeShape(g))
	return workflow.Edge{}
}

// =============================================================================
// Scenarios
// =============================================================================

func TestRepair_TriggerAndAction(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			node("a", "webhook_trigger", "Incoming"),
			node("b", "http_request", "Call API"),
		},
		Edges: []workflow.Edge{{ID: "e1", Source: "a", Target: "b"}},
	}

	res := mustRepair(t, g)

	if len(res.Graph.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(res.Graph.Nodes))
	}
	for _, n := range res.Graph.Nodes {
		if !n.HasPosition() {
			t.Errorf("node %q has no position", n.Label)
		}
	}
	if len(res.Graph.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(res.Graph.Edges))
	}
	e := res.Graph.Edges[0]
	if e.SourceHandle != "output" || e.TargetHandle != "input" {
		t.Errorf("handles = %q/%q, want output/input", e.SourceHandle, e.TargetHandle)
	}
}

func TestRepair_ConditionalKeepsBothBranches(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			node("t", "manual_trigger", "Start"),
			node("c", "if_else", "Check"),
			node("d", "send_email", "Send welcome"),
			node("e", "slack_message", "Post to channel"),
		},
		Edges: []workflow.Edge{edge("t", "c"), edge("c", "d"), edge("c", "e")},
	}

	res := mustRepair(t, g)

	if len(res.Graph.Edges) != 3 {
		t.Fatalf("edges = %v, want the original three", edgeShape(res.Graph))
	}
	if h := findEdge(t, res.Graph, "Check", "Send welcome").SourceHandle; h != "true" {
		t.Errorf("first branch = %q, want true", h)
	}
	if h := findEdge(t, res.Graph, "Check", "Post to channel").SourceHandle; h != "false" {
		t.Errorf("second branch = %q, want false", h)
	}
	if res.Diagnostics.Count(CodeChainEdgeAdded) != 0 {
		t.Error("branching graph was rewritten into a chain")
	}
}

func TestRepair_DuplicateNodeIDs(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			node("n1", "http_request", "First"),
			node("n1", "code", "Second"),
		},
	}

	res := mustRepair(t, g)

	if len(res.Graph.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(res.Graph.Nodes))
	}
	if got := res.Graph.Nodes[0].Label; got != "First" {
		t.Errorf("surviving node = %q, want First", got)
	}
}

func TestRepair_TriggerToSinkRemoved(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			node("t", "webhook_trigger", "Hook"),
			node("l", "log_output", "Log"),
		},
		Edges: []workflow.Edge{edge("t", "l")},
	}

	res := mustRepair(t, g)

	if len(res.Graph.Edges) != 0 {
		t.Errorf("edges = %v, want none", edgeShape(res.Graph))
	}
	if res.Diagnostics.Count(CodeSinkEdgeRemoved) == 0 {
		t.Error("expected a sink_edge_removed diagnostic")
	}
}

func TestRepair_AliasResolution(t *testing.T) {
	cat := catalog.Default()
	sheets, _ := cat.Lookup("google_sheets")

	g := workflow.Graph{Nodes: []workflow.Node{
		{ID: "a", Type: "gsheets"},
		{ID: "b", Type: "gsheets", Label: "Budget"},
	}}

	res := mustRepair(t, g)

	for _, n := range res.Graph.Nodes {
		if n.Type != "google_sheets" {
			t.Errorf("type = %q, want google_sheets", n.Type)
		}
		if n.Icon != sheets.Icon || n.Category != sheets.Category {
			t.Errorf("icon/category = %q/%q, want %q/%q", n.Icon, n.Category, sheets.Icon, sheets.Category)
		}
	}
	labels := []string{res.Graph.Nodes[0].Label, res.Graph.Nodes[1].Label}
	if !slices.Contains(labels, sheets.Label) || !slices.Contains(labels, "Budget") {
		t.Errorf("labels = %v, want catalog label and the preserved one", labels)
	}
}

func TestRepair_SinkFollowsChain(t *testing.T) {
	g := workflow.Graph{Nodes: []workflow.Node{
		node("t", "webhook_trigger", "Hook"),
		node("l", "log_output", "Log"),
		node("a", "http_request", "Fetch"),
		node("b", "slack_message", "Notify"),
	}}
	want := []string{
		"Fetch -> Notify [output/input]",
		"Hook -> Fetch [output/input]",
		"Notify -> Log [output/input]",
	}

	once := mustRepair(t, g)
	if got := edgeShape(once.Graph); !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	twice := mustRepair(t, once.Graph)
	if got := edgeShape(twice.Graph); !slices.Equal(got, want) {
		t.Errorf("edges after second repair = %v, want %v", got, want)
	}
}

func TestRepair_UnknownTriggerTypes(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			node("m", "new_email_trigger", "Inbox"),
			node("s", "stripe_trigger", "Payment"),
			node("n", "slack", "Notify"),
		},
		Edges: []workflow.Edge{edge("m", "n"), edge("s", "n")},
	}

	res := mustRepair(t, g)

	nodes := byLabel(res.Graph)
	if len(res.Graph.Nodes) != 2 {
		t.Fatalf("nodes = %v, want the secondary trigger dropped", labelsOf(res.Graph.Nodes))
	}
	if got := nodes["Inbox"].Type; got != "email_trigger" {
		t.Errorf("Inbox type = %q, want email_trigger", got)
	}
	if _, ok := nodes["Payment"]; ok {
		t.Error("Payment trigger survived next to the primary trigger")
	}
	if n := res.Diagnostics.Count(CodeTriggerDropped); n != 1 {
		t.Errorf("trigger_dropped = %d, want 1", n)
	}
	findEdge(t, res.Graph, "Inbox", "Notify")
}

// =============================================================================
// Properties
// =============================================================================

func branchingFixture() workflow.Graph {
	return workflow.Graph{
		Nodes: []workflow.Node{
			node("t", "form_submission_trigger", "Form"),
			node("c", "if_else", "Check"),
			node("a", "google_sheets", "Store row"),
			node("r", "send_email", "Reply"),
			node("x", "error_handler", "Recover"),
			node("l", "log_output", "Log"),
		},
		Edges: []workflow.Edge{
			edge("t", "c"),
			handled("c", "a", "yes", ""),
			edge("c", "r"),
		},
	}
}

func TestRepair_Idempotent(t *testing.T) {
	fixtures := map[string]workflow.Graph{
		"branching": branchingFixture(),
		"chain": {Nodes: []workflow.Node{
			node("t", "webhook", "Hook"),
			node("a", "http", "Fetch"),
			node("b", "gmail", "Mail"),
			node("l", "log", "Log"),
		}},
	}

	for name, g := range fixtures {
		t.Run(name, func(t *testing.T) {
			once := mustRepair(t, g)
			twice := mustRepair(t, once.Graph)

			if len(once.Graph.Nodes) != len(twice.Graph.Nodes) {
				t.Fatalf("nodes %d -> %d", len(once.Graph.Nodes), len(twice.Graph.Nodes))
			}
			if a, b := edgeShape(once.Graph), edgeShape(twice.Graph); !slices.Equal(a, b) {
				t.Errorf("edges changed:\n%v\n%v", a, b)
			}
			first, second := byLabel(once.Graph), byLabel(twice.Graph)
			for label, n := range first {
				m, ok := second[label]
				if !ok {
					t.Errorf("node %q missing after second repair", label)
					continue
				}
				if *n.Position != *m.Position {
					t.Errorf("node %q moved from %v to %v", label, *n.Position, *m.Position)
				}
				if n.Type != m.Type {
					t.Errorf("node %q type %q -> %q", label, n.Type, m.Type)
				}
			}
		})
	}
}

func TestRepair_SplitsSink(t *testing.T) {
	res := mustRepair(t, branchingFixture())

	if len(res.Graph.Nodes) != 7 {
		t.Fatalf("nodes = %d, want 7 (one sink added)", len(res.Graph.Nodes))
	}
	nodes := byLabel(res.Graph)
	if got := nodes["Log"].Config["message"]; got != SuccessSinkMessage {
		t.Errorf("success sink message = %v", got)
	}
	if got := nodes["Log (failure)"].Config["message"]; got != FailureSinkMessage {
		t.Errorf("failure sink message = %v", got)
	}
	findEdge(t, res.Graph, "Store row", "Log")
	findEdge(t, res.Graph, "Reply", "Log")
	findEdge(t, res.Graph, "Recover", "Log (failure)")
	if h := findEdge(t, res.Graph, "Check", "Store row").SourceHandle; h != "true" {
		t.Errorf("Check -> Store row = %q, want true", h)
	}
	if h := findEdge(t, res.Graph, "Check", "Reply").SourceHandle; h != "false" {
		t.Errorf("Check -> Reply = %q, want false", h)
	}
}

func TestRepair_DoesNotModifyInput(t *testing.T) {
	g := branchingFixture()
	before := edgeShape(g)
	ids := g.NodeIDs()

	mustRepair(t, g)

	if after := edgeShape(g); !slices.Equal(before, after) {
		t.Errorf("input edges changed: %v -> %v", before, after)
	}
	for _, n := range g.Nodes {
		if !ids[n.ID] || n.Position != nil {
			t.Errorf("input node %q was modified", n.ID)
		}
	}
}

// randomGraph builds an arbitrary graph: colliding and missing IDs, alias and
// unknown types, cycles, dangling edges, and junk handles.
func randomGraph(seed uint64) workflow.Graph {
	types := []string{
		"", "webhook_trigger", "form", "manual", "http", "if_else", "switch",
		"log_output", "error_handler", "ai_agent", "merge", "gsheets", "zzz_unknown",
		"  Gmail ", "delay",
	}
	handles := []string{"", "output", "true", "false", "body", "maybe", "memory", "case_1"}
	labels := []string{"", "Approved", "Rejected", "Notify team", "check inbox", "Step"}

	r := rand.New(rand.NewPCG(seed, seed*31+7))
	n := r.IntN(60)
	g := workflow.Graph{}
	for i := range n {
		id := fmt.Sprintf("n%d", r.IntN(n+1))
		if r.IntN(10) == 0 {
			id = ""
		}
		nd := node(id, types[r.IntN(len(types))], labels[r.IntN(len(labels))])
		if r.IntN(4) == 0 {
			nd = at(nd, float64(i*300), float64(r.IntN(3)*400))
		}
		g.Nodes = append(g.Nodes, nd)
	}
	for range r.IntN(2*n + 1) {
		g.Edges = append(g.Edges, workflow.Edge{
			ID:           fmt.Sprintf("e%d", r.IntN(5)),
			Source:       fmt.Sprintf("n%d", r.IntN(n+2)),
			Target:       fmt.Sprintf("n%d", r.IntN(n+2)),
			SourceHandle: handles[r.IntN(len(handles))],
			TargetHandle: handles[r.IntN(len(handles))],
		})
	}
	return g
}

// shape describes a repaired graph without IDs or node order: each node by
// type, label, and position, each edge by its endpoints and handles.
func shape(g workflow.Graph) []string {
	keys := make(map[string]string, len(g.Nodes))
	out := make([]string, 0, len(g.Nodes)+len(g.Edges))
	for _, n := range g.Nodes {
		k := fmt.Sprintf("%s %q %v", n.Type, n.Label, *n.Position)
		keys[n.ID] = k
		out = append(out, "node "+k)
	}
	for _, e := range g.Edges {
		out = append(out, fmt.Sprintf("edge %s -[%s/%s]-> %s", keys[e.Source], e.SourceHandle, e.TargetHandle, keys[e.Target]))
	}
	slices.Sort(out)
	return out
}

func TestRepair_Totality(t *testing.T) {
	for seed := range uint64(50) {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			res, err := Repair(randomGraph(seed), Options{})
			if err != nil {
				t.Fatalf("Repair() error: %v", err)
			}
			for _, v := range Validate(res.Graph, nil) {
				t.Errorf("violation: %v", v)
			}
		})
	}
}

func TestRepair_IdempotentOnRandomGraphs(t *testing.T) {
	for seed := range uint64(300) {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			once := mustRepair(t, randomGraph(seed))
			twice := mustRepair(t, once.Graph)

			a, b := shape(once.Graph), shape(twice.Graph)
			if !slices.Equal(a, b) {
				t.Errorf("second repair changed the graph:\n%v\n%v", a, b)
			}
		})
	}
}

// =============================================================================
// Fatal errors
// =============================================================================

func TestRepair_AllocationExhausted(t *testing.T) {
	alloc := &idalloc.Allocator{Source: func() (string, error) { return "fixed", nil }}
	g := workflow.Graph{Nodes: []workflow.Node{node("a", "code", "A"), node("b", "code", "B")}}

	res, err := Repair(g, Options{Allocator: alloc})

	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.IsFatal(err) {
		t.Errorf("IsFatal(%v) = false", err)
	}
	if !stderrors.Is(err, idalloc.ErrAllocationExhausted) {
		t.Errorf("error does not wrap ErrAllocationExhausted: %v", err)
	}
	if len(res.Graph.Nodes) != 0 || len(res.Diagnostics) != 0 {
		t.Error("failed repair returned a partial result")
	}
}

func TestCheckIntegrity(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{{ID: "a"}, {ID: "a"}, {ID: "b"}},
		Edges: []workflow.Edge{edge("a", "b"), edge("a", "b")},
	}

	err := CheckIntegrity(g)

	var dup *DuplicateIdentifierError
	if !stderrors.As(err, &dup) {
		t.Fatalf("CheckIntegrity() = %v, want *DuplicateIdentifierError", err)
	}
	if !slices.Equal(dup.NodeIDs, []string{"a"}) || !slices.Equal(dup.EdgeIDs, []string{"a-b"}) {
		t.Errorf("duplicates = %v / %v", dup.NodeIDs, dup.EdgeIDs)
	}
	if !errors.Is(err, errors.ErrCodeDuplicateIdentifier) || !errors.IsFatal(err) {
		t.Errorf("error is not coded DUPLICATE_IDENTIFIER: %v", err)
	}

	if err := CheckIntegrity(workflow.Graph{Nodes: []workflow.Node{{ID: "a"}}}); err != nil {
		t.Errorf("CheckIntegrity() on a clean graph = %v", err)
	}
}

func TestStageNames(t *testing.T) {
	want := []string{"rebuild", "resolve", "linearize", "layout", "handles", "branches", "sink", "finalize"}
	if got := StageNames(); !slices.Equal(got, want) {
		t.Errorf("StageNames() = %v, want %v", got, want)
	}
}
