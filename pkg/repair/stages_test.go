package repair

import (
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/flowmend/pkg/workflow"
)

func labelsOf(nodes []workflow.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

// =============================================================================
// RebuildIDs
// =============================================================================

func TestRebuildIDs(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			node("n1", "code", "A"),
			node("n1", "code", "B"),
			node("", "code", "C"),
			node("n2", "code", "D"),
		},
		Edges: []workflow.Edge{
			edge("n1", "n2"),
			edge("n2", "missing"),
			edge("", "n2"),
		},
	}
	env := NewEnv(Options{})

	out, err := RebuildIDs(g, env)
	if err != nil {
		t.Fatalf("RebuildIDs() error: %v", err)
	}

	if got := labelsOf(out.Nodes); !slices.Equal(got, []string{"A", "C", "D"}) {
		t.Errorf("nodes = %v, want [A C D]", got)
	}
	for _, n := range out.Nodes {
		if !strings.HasPrefix(n.ID, "node_") {
			t.Errorf("node id %q lacks node_ prefix", n.ID)
		}
	}
	if len(out.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(out.Edges))
	}
	e := out.Edges[0]
	if e.Source != out.Nodes[0].ID || e.Target != out.Nodes[2].ID {
		t.Errorf("edge %s -> %s not rewritten to A -> D", e.Source, e.Target)
	}
	if !strings.HasPrefix(e.ID, "edge_") {
		t.Errorf("edge id %q lacks edge_ prefix", e.ID)
	}
	if n := env.Diagnostics.Count(CodeDuplicateNodeDropped); n != 1 {
		t.Errorf("duplicate diagnostics = %d, want 1", n)
	}
	if n := env.Diagnostics.Count(CodeDanglingEdgeDropped); n != 2 {
		t.Errorf("dangling diagnostics = %d, want 2", n)
	}
}

// =============================================================================
// Linearize
// =============================================================================

func TestLinearize_PrefersFormTrigger(t *testing.T) {
	g := workflow.Graph{Nodes: []workflow.Node{
		node("w", "webhook_trigger", "Hook"),
		node("a", "http_request", "A"),
		node("f", "form_submission_trigger", "Form"),
		node("b", "code", "B"),
	}}
	env := NewEnv(Options{})

	out, err := Linearize(g, env)
	if err != nil {
		t.Fatalf("Linearize() error: %v", err)
	}

	if got := labelsOf(out.Nodes); !slices.Equal(got, []string{"Form", "A", "B"}) {
		t.Errorf("order = %v, want [Form A B]", got)
	}
	want := []string{"f>a", "a>b"}
	var got []string
	for _, e := range out.Edges {
		got = append(got, e.Source+">"+e.Target)
	}
	if !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	if n := env.Diagnostics.Count(CodeTriggerDropped); n != 1 {
		t.Errorf("trigger_dropped = %d, want 1", n)
	}
	if n := env.Diagnostics.Count(CodeChainEdgeAdded); n != 2 {
		t.Errorf("chain_edge_added = %d, want 2", n)
	}
}

func TestLinearize_LeavesSinksOutOfChain(t *testing.T) {
	g := workflow.Graph{Nodes: []workflow.Node{
		node("t", "webhook_trigger", "Hook"),
		node("l", "log_output", "Log"),
		node("a", "http_request", "Fetch"),
		node("b", "slack_message", "Notify"),
	}}
	env := NewEnv(Options{})

	out, err := Linearize(g, env)
	if err != nil {
		t.Fatalf("Linearize() error: %v", err)
	}

	if got := labelsOf(out.Nodes); !slices.Equal(got, []string{"Hook", "Fetch", "Notify", "Log"}) {
		t.Errorf("order = %v, want the sink last", got)
	}
	want := []string{"t>a", "a>b"}
	var got []string
	for _, e := range out.Edges {
		got = append(got, e.Source+">"+e.Target)
	}
	if !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestLinearize_ReusesAndKeepsEdges(t *testing.T) {
	reused := handled("f", "a", "body", "")
	g := workflow.Graph{
		Nodes: []workflow.Node{
			node("f", "form_submission_trigger", "Form"),
			node("a", "http_request", "A"),
			node("b", "code", "B"),
		},
		Edges: []workflow.Edge{reused, edge("f", "b"), edge("a", "b")},
	}
	env := NewEnv(Options{})

	out, err := Linearize(g, env)
	if err != nil {
		t.Fatalf("Linearize() error: %v", err)
	}

	want := []string{"f-a", "a-b", "f-b"}
	var got []string
	for _, e := range out.Edges {
		got = append(got, e.ID)
	}
	if !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	if out.Edges[0].SourceHandle != "body" {
		t.Error("reused chain edge lost its handle")
	}
	if env.Diagnostics.Count(CodeChainEdgeAdded) != 0 {
		t.Error("no edge should have been synthesized")
	}
}

func TestLinearize_BranchGuard(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			node("f", "form_submission_trigger", "Form"),
			node("d", "code", "Detached"),
			node("c", "if_else", "Check"),
			node("a", "http_request", "A"),
			node("b", "code", "B"),
		},
		Edges: []workflow.Edge{edge("f", "c"), edge("c", "a"), edge("c", "b")},
	}
	env := NewEnv(Options{})

	out, err := Linearize(g, env)
	if err != nil {
		t.Fatalf("Linearize() error: %v", err)
	}

	if !slices.Equal(out.Edges, g.Edges) {
		t.Errorf("edges = %v, want them unchanged", out.Edges)
	}
	if got := labelsOf(out.Nodes); !slices.Equal(got, []string{"Form", "Check", "A", "Detached", "B"}) {
		t.Errorf("order = %v", got)
	}
}

func TestLinearize_NoTrigger(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{node("a", "code", "A"), node("b", "code", "B")},
	}

	out, err := Linearize(g, NewEnv(Options{}))
	if err != nil {
		t.Fatalf("Linearize() error: %v", err)
	}
	if len(out.Edges) != 0 || !slices.Equal(labelsOf(out.Nodes), []string{"A", "B"}) {
		t.Errorf("graph without trigger was changed: %+v", out)
	}
}

// =============================================================================
// Layout
// =============================================================================

func TestAssignLevels(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  map[string]int
	}{
		{
			name:  "diamond",
			nodes: []string{"a", "b", "c", "d"},
			edges: [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
			want:  map[string]int{"a": 0, "b": 1, "c": 1, "d": 2},
		},
		{
			name:  "longest path wins",
			nodes: []string{"a", "b", "c"},
			edges: [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}},
			want:  map[string]int{"a": 0, "b": 1, "c": 2},
		},
		{
			name:  "cycle",
			nodes: []string{"r", "a", "b"},
			edges: [][2]string{{"r", "a"}, {"a", "b"}, {"b", "a"}},
			want:  map[string]int{"r": 0, "a": 1, "b": 2},
		},
		{
			name:  "self loop",
			nodes: []string{"a"},
			edges: [][2]string{{"a", "a"}},
			want:  map[string]int{"a": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var nodes []workflow.Node
			for _, id := range tt.nodes {
				nodes = append(nodes, workflow.Node{ID: id})
			}
			var edges []workflow.Edge
			for _, e := range tt.edges {
				edges = append(edges, edge(e[0], e[1]))
			}

			got := AssignLevels(workflow.NewIndex(nodes, edges))

			for id, want := range tt.want {
				if got[id] != want {
					t.Errorf("level[%s] = %d, want %d", id, got[id], want)
				}
			}
		})
	}
}

func TestLayout_CentersRows(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []workflow.Edge{edge("a", "b"), edge("a", "c")},
	}

	out := Layout(g, NewEnv(Options{}))

	want := map[string]workflow.Position{
		"a": {X: 260, Y: 100},
		"b": {X: 100, Y: 280},
		"c": {X: 420, Y: 280},
	}
	for _, n := range out.Nodes {
		if *n.Position != want[n.ID] {
			t.Errorf("%s at %v, want %v", n.ID, *n.Position, want[n.ID])
		}
	}
}

func TestLayout_KeepsPositionsAndAvoidsThem(t *testing.T) {
	g := workflow.Graph{Nodes: []workflow.Node{
		at(workflow.Node{ID: "a"}, 420, 100),
		{ID: "b"},
	}}
	env := NewEnv(Options{})

	out := Layout(g, env)

	if p := *out.Nodes[0].Position; p != (workflow.Position{X: 420, Y: 100}) {
		t.Errorf("positioned node moved to %v", p)
	}
	if p := *out.Nodes[1].Position; p != (workflow.Position{X: 700, Y: 100}) {
		t.Errorf("b at %v, want (700, 100)", p)
	}
	if env.Diagnostics.Count(CodePositionShifted) != 1 {
		t.Error("expected one position_shifted diagnostic")
	}
	if g.Nodes[1].Position != nil {
		t.Error("Layout modified its input")
	}
}

// =============================================================================
// NormalizeHandles
// =============================================================================

func TestNormalizeHandles(t *testing.T) {
	nodes := []workflow.Node{
		node("h1", "http_request", ""),
		node("h2", "http_request", ""),
		node("c", "if_else", ""),
		node("s", "switch", ""),
		node("g", "ai_agent", ""),
		node("m", "merge", ""),
	}
	tests := []struct {
		name       string
		src, dst   string
		sh, th     string
		wantSource string
		wantTarget string
		wantWarn   bool
	}{
		{"standard defaults", "h1", "h2", "", "", "output", "input", false},
		{"synonyms", "h1", "h2", "body", "content", "output", "input", false},
		{"unknown names", "h1", "h2", "weird", "weird", "output", "input", false},
		{"standard target ignores ports", "h1", "h2", "", "chat_model", "output", "input", false},
		{"conditional missing", "c", "h2", "", "", "true", "input", true},
		{"conditional case-insensitive", "c", "h2", "False", "", "false", "input", false},
		{"conditional synonym", "c", "h2", "no", "", "false", "input", false},
		{"conditional invalid", "c", "h2", "maybe", "", "true", "input", true},
		{"switch missing", "s", "h2", "", "", "default", "input", false},
		{"switch output", "s", "h2", "output", "", "default", "input", false},
		{"switch case port", "s", "h2", "case_a", "", "case_a", "input", false},
		{"agent missing", "h1", "g", "", "", "output", "userInput", false},
		{"agent user_input", "h1", "g", "", "user_input", "output", "userInput", false},
		{"agent declared port", "h1", "g", "", "Memory", "output", "memory", false},
		{"agent data", "h1", "g", "", "data", "output", "userInput", false},
		{"agent unknown port", "h1", "g", "", "bogus", "output", "userInput", false},
		{"merge second port", "h1", "m", "", "input_2", "output", "input_2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := workflow.Graph{Nodes: nodes, Edges: []workflow.Edge{handled(tt.src, tt.dst, tt.sh, tt.th)}}
			env := NewEnv(Options{})

			out := NormalizeHandles(g, env)

			e := out.Edges[0]
			if e.SourceHandle != tt.wantSource || e.TargetHandle != tt.wantTarget {
				t.Errorf("handles = %q/%q, want %q/%q", e.SourceHandle, e.TargetHandle, tt.wantSource, tt.wantTarget)
			}
			if warned := env.Diagnostics.Count(CodeAmbiguousBranch) > 0; warned != tt.wantWarn {
				t.Errorf("ambiguous warning = %v, want %v", warned, tt.wantWarn)
			}
		})
	}
}

// =============================================================================
// RepairBranches
// =============================================================================

func TestRepairBranches(t *testing.T) {
	type branch struct {
		label, typ, handle string
	}
	tests := []struct {
		name     string
		branches []branch
		want     map[string]string // target label -> handle, "" if dropped
	}{
		{
			name:     "identical handles split by order",
			branches: []branch{{"Step one", "", "true"}, {"Step two", "", "true"}},
			want:     map[string]string{"Step one": "true", "Step two": "false"},
		},
		{
			name:     "valid pair untouched",
			branches: []branch{{"A", "", "false"}, {"B", "", "true"}},
			want:     map[string]string{"A": "false", "B": "true"},
		},
		{
			name:     "single valid edge untouched",
			branches: []branch{{"A", "", "false"}},
			want:     map[string]string{"A": "false"},
		},
		{
			name:     "labels decide polarity",
			branches: []branch{{"Approved", "", "true"}, {"Rejected", "", "true"}, {"Archive", "", "true"}},
			want:     map[string]string{"Approved": "true", "Rejected": "false", "Archive": ""},
		},
		{
			name:     "label beats order",
			branches: []branch{{"Step", "", "true"}, {"Step two", "", "true"}, {"Accepted", "", "true"}},
			want:     map[string]string{"Step": "false", "Step two": "", "Accepted": "true"},
		},
		{
			name:     "settled edges kept, surplus dropped",
			branches: []branch{{"Send", "", "false"}, {"Notify", "", "true"}, {"Not found", "", "true"}},
			want:     map[string]string{"Send": "false", "Notify": "true", "Not found": ""},
		},
		{
			name:     "failure handler takes false",
			branches: []branch{{"Step", "", "true"}, {"Handle", "error_handler", "true"}, {"Other", "", "true"}},
			want:     map[string]string{"Step": "true", "Handle": "false", "Other": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := workflow.Graph{Nodes: []workflow.Node{node("c", "if_else", "Check")}}
			for i, b := range tt.branches {
				typ := b.typ
				if typ == "" {
					typ = "http_request"
				}
				id := "t" + string(rune('0'+i))
				g.Nodes = append(g.Nodes, node(id, typ, b.label))
				g.Edges = append(g.Edges, handled("c", id, b.handle, "input"))
			}
			env := NewEnv(Options{})

			out := RepairBranches(g, env)

			got := make(map[string]string)
			for _, b := range tt.branches {
				got[b.label] = ""
			}
			for _, e := range out.Edges {
				for _, n := range out.Nodes {
					if n.ID == e.Target {
						got[n.Label] = e.SourceHandle
					}
				}
			}
			for label, want := range tt.want {
				if got[label] != want {
					t.Errorf("%q -> %q, want %q", label, got[label], want)
				}
			}
			if len(out.Nodes) != len(g.Nodes) {
				t.Error("RepairBranches changed the node set")
			}
		})
	}
}

func TestRepairBranches_MissingBranches(t *testing.T) {
	g := workflow.Graph{Nodes: []workflow.Node{node("c", "if_else", "Check")}}
	env := NewEnv(Options{})

	out := RepairBranches(g, env)

	if len(out.Edges) != 0 || len(out.Nodes) != 1 {
		t.Errorf("graph changed: %+v", out)
	}
	if env.Diagnostics.Count(CodeBranchMissing) != 1 {
		t.Error("expected a branch_missing warning")
	}
}

func TestPolarityFromLabel(t *testing.T) {
	tests := map[string]string{
		"Approved":        "true",
		"Accept offer":    "true",
		"Valid":           "true",
		"Not approved":    "false",
		"Invalid input":   "false",
		"Rejected":        "false",
		"Notify team":     "",
		"Send email":      "",
		"":                "",
		"is-valid? (yes)": "true",
	}
	for label, want := range tests {
		if got := polarityFromLabel(label); got != want {
			t.Errorf("polarityFromLabel(%q) = %q, want %q", label, got, want)
		}
	}
}

// =============================================================================
// WireLogSink
// =============================================================================

func TestWireLogSink_Split(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			at(node("t", "manual_trigger", "Start"), 100, 100),
			at(node("a", "http_request", "Fetch"), 100, 280),
			at(node("x", "error_handler", "Recover"), 420, 280),
			at(node("l", "log_output", "Log"), 500, 500),
		},
		Edges: []workflow.Edge{edge("t", "a")},
	}
	env := NewEnv(Options{})

	out, err := WireLogSink(g, env)
	if err != nil {
		t.Fatalf("WireLogSink() error: %v", err)
	}

	if len(out.Nodes) != 5 {
		t.Fatalf("nodes = %d, want 5", len(out.Nodes))
	}
	success, failure := out.Nodes[3], out.Nodes[4]
	if success.ID != "l" || *success.Position != (workflow.Position{X: 360, Y: 500}) {
		t.Errorf("success sink = %s at %v", success.ID, *success.Position)
	}
	if failure.Type != "log_output" || *failure.Position != (workflow.Position{X: 640, Y: 500}) {
		t.Errorf("failure sink = %s at %v", failure.Type, *failure.Position)
	}
	if success.Config["message"] != SuccessSinkMessage || failure.Config["message"] != FailureSinkMessage {
		t.Errorf("messages = %v / %v", success.Config["message"], failure.Config["message"])
	}
	if g.Nodes[3].Config != nil {
		t.Error("WireLogSink modified its input")
	}

	var got []string
	for _, e := range out.Edges {
		got = append(got, e.Source+">"+e.Target+":"+e.SourceHandle+"/"+e.TargetHandle)
	}
	want := []string{"t>a::", "a>l:output/input", "x>" + failure.ID + ":output/input"}
	if !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

func TestWireLogSink_SinkSafetyWithSeveralSinks(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			node("t", "webhook_trigger", "Hook"),
			node("l1", "log_output", "Log 1"),
			node("a", "code", "A"),
			node("l2", "log_output", "Log 2"),
			node("b", "code", "B"),
		},
		Edges: []workflow.Edge{edge("t", "l1"), edge("l1", "a"), edge("a", "l2")},
	}
	env := NewEnv(Options{})

	out, err := WireLogSink(g, env)
	if err != nil {
		t.Fatalf("WireLogSink() error: %v", err)
	}

	if len(out.Edges) != 1 || out.Edges[0].ID != "a-l2" {
		t.Errorf("edges = %v, want only a-l2", out.Edges)
	}
	if env.Diagnostics.Count(CodeSinkEdgeRemoved) != 2 {
		t.Errorf("sink_edge_removed = %d, want 2", env.Diagnostics.Count(CodeSinkEdgeRemoved))
	}
}

func TestWireLogSink_WiresTerminals(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{
			node("t", "webhook_trigger", "Hook"),
			node("a", "code", "A"),
			node("l", "log_output", "Log"),
			node("b", "code", "B"),
			node("c", "if_else", "Check"),
		},
		Edges: []workflow.Edge{edge("t", "a"), edge("a", "l")},
	}

	out, err := WireLogSink(g, NewEnv(Options{}))
	if err != nil {
		t.Fatalf("WireLogSink() error: %v", err)
	}

	var got []string
	for _, e := range out.Edges {
		got = append(got, e.Source+">"+e.Target+":"+e.SourceHandle)
	}
	want := []string{"t>a:", "a>l:", "b>l:output", "c>l:true"}
	if !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
}

// =============================================================================
// Finalize
// =============================================================================

func TestFinalize(t *testing.T) {
	g := workflow.Graph{
		Nodes: []workflow.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "a", Label: "dup"}},
		Edges: []workflow.Edge{
			{ID: "e1", Source: "a", Target: "b", SourceHandle: "output"},
			{ID: "e2", Source: "a", Target: "b", SourceHandle: "output"},
			{ID: "e1", Source: "a", Target: "c", SourceHandle: "output"},
			{ID: "", Source: "b", Target: "c", SourceHandle: "output"},
			{ID: "e5", Source: "a", Target: "zz"},
		},
	}
	env := NewEnv(Options{})

	out, err := Finalize(g, env)
	if err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}

	if len(out.Nodes) != 3 || out.Nodes[0].Label != "" {
		t.Errorf("nodes = %+v, want first-seen a, b, c", out.Nodes)
	}
	if len(out.Edges) != 3 {
		t.Fatalf("edges = %+v, want 3", out.Edges)
	}
	if out.Edges[0].ID != "e1" || out.Edges[0].Target != "b" {
		t.Errorf("first edge = %+v, want original e1", out.Edges[0])
	}
	for _, e := range out.Edges[1:] {
		if !strings.HasPrefix(e.ID, "edge_") {
			t.Errorf("edge %s -> %s kept id %q, want a fresh one", e.Source, e.Target, e.ID)
		}
	}
	if err := CheckIntegrity(out); err != nil {
		t.Errorf("CheckIntegrity() = %v", err)
	}
	for code, want := range map[string]int{
		CodeDuplicateNodeDropped: 1,
		CodeDuplicateEdgeDropped: 1,
		CodeDanglingEdgeDropped:  1,
		CodeEdgeIDReallocated:    2,
	} {
		if got := env.Diagnostics.Count(code); got != want {
			t.Errorf("%s = %d, want %d", code, got, want)
		}
	}
}
