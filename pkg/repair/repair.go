package repair

import (
	"fmt"
	"time"

	"github.com/matzehuels/flowmend/pkg/workflow"
)

// StageStat records how one stage of a repair call went.
type StageStat struct {
	Name        string        `json:"name"`
	Duration    time.Duration `json:"duration"`
	Diagnostics int           `json:"diagnostics"`
}

// Result is the outcome of a successful [Repair].
type Result struct {
	Graph       workflow.Graph `json:"graph"`
	Diagnostics Diagnostics    `json:"diagnostics"`
	Stages      []StageStat    `json:"stages"`
}

type stage struct {
	name string
	run  func(workflow.Graph, *Env) (workflow.Graph, error)
}

func total(f func(workflow.Graph, *Env) workflow.Graph) func(workflow.Graph, *Env) (workflow.Graph, error) {
	return func(g workflow.Graph, env *Env) (workflow.Graph, error) { return f(g, env), nil }
}

// stages lists the repair stages in the only order in which they are valid:
// later stages rely on unique IDs, resolved types, and placed nodes.
var stages = []stage{
	{StageRebuild, RebuildIDs},
	{StageResolve, total(ResolveTypes)},
	{StageLinearize, Linearize},
	{StageLayout, total(Layout)},
	{StageHandles, total(NormalizeHandles)},
	{StageBranches, total(RepairBranches)},
	{StageSink, WireLogSink},
	{StageFinalize, Finalize},
}

// Repair turns an arbitrary workflow graph into a consistent one.
//
// The input is never modified. On success the returned graph has unique node
// and edge IDs, only catalog node types, canonical handles, well-formed
// conditional branches, log sinks fed only by terminal nodes, and a position
// for every node. Everything the stages changed is listed in
// Result.Diagnostics.
//
// Repair fails only when identifier allocation is exhausted or duplicate
// identifiers survive deduplication; errors.IsFatal reports true for both.
// The caller must then keep its previous graph.
func Repair(g workflow.Graph, opts Options) (Result, error) {
	env := NewEnv(opts)
	cur := g.Clone()

	stats := make([]StageStat, 0, len(stages))
	for _, s := range stages {
		start, before := time.Now(), len(env.Diagnostics)
		next, err := s.run(cur, env)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", s.name, err)
		}
		cur = next
		stats = append(stats, StageStat{
			Name:        s.name,
			Duration:    time.Since(start),
			Diagnostics: len(env.Diagnostics) - before,
		})
	}

	if cur.Edges == nil {
		cur.Edges = []workflow.Edge{}
	}
	if cur.Nodes == nil {
		cur.Nodes = []workflow.Node{}
	}
	return Result{Graph: cur, Diagnostics: env.Diagnostics, Stages: stats}, nil
}

// StageNames returns the stage names in execution order.
func StageNames() []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.name
	}
	return names
}
