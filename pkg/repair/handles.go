package repair

import (
	"strings"

	"github.com/matzehuels/flowmend/pkg/workflow"
)

// NormalizeHandles rewrites every edge's source and target handle to a
// canonical port name of the connected node type. Handles first go through
// the synonym tables and are then checked against the ports the type
// actually has:
//
//   - conditional sources keep "true"/"false"; anything else becomes "true"
//     with an ambiguous_branch_handle warning (branch repair revisits these)
//   - switch sources keep case ports verbatim; missing or "output" becomes
//     "default"
//   - all other sources become "output"
//   - multi-input targets keep a declared port; anything else becomes the
//     primary port
//   - all other targets become "input"
//
// Nodes and edge endpoints are never changed.
func NormalizeHandles(g workflow.Graph, env *Env) workflow.Graph {
	env.enter(StageHandles)

	types := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		types[n.ID] = n.Type
	}

	edges := make([]workflow.Edge, len(g.Edges))
	for i, e := range g.Edges {
		e.SourceHandle = normalizeSource(env, e, types[e.Source])
		e.TargetHandle = normalizeTarget(env, e, types[e.Target])
		edges[i] = e
	}
	g.Edges = edges
	return g
}

func normalizeSource(env *Env, e workflow.Edge, typ string) string {
	raw := strings.TrimSpace(e.SourceHandle)
	key := strings.ToLower(raw)
	canonical := raw
	if syn, ok := SourceHandleSynonyms[key]; ok {
		canonical = syn
	}

	switch {
	case env.Catalog.IsConditional(typ):
		if c := strings.ToLower(canonical); isPolarity(c) {
			return c
		}
		if raw == "" {
			env.warn(CodeAmbiguousBranch, e.Source, e.ID, "conditional edge to %s has no branch handle; defaulting to %q", e.Target, workflow.HandleTrue)
		} else {
			env.warn(CodeAmbiguousBranch, e.Source, e.ID, "conditional edge to %s has handle %q; defaulting to %q", e.Target, raw, workflow.HandleTrue)
		}
		return workflow.HandleTrue

	case env.Catalog.IsSwitch(typ):
		if canonical == "" || canonical == workflow.HandleOutput {
			return workflow.HandleDefault
		}
		return canonical

	default:
		if raw != "" && canonical != workflow.HandleOutput {
			env.info(CodeHandleCoerced, e.Source, e.ID, "source handle %q coerced to %q", raw, workflow.HandleOutput)
		}
		return workflow.HandleOutput
	}
}

func normalizeTarget(env *Env, e workflow.Edge, typ string) string {
	raw := strings.TrimSpace(e.TargetHandle)
	key := strings.ToLower(raw)
	canonical := raw
	if syn, ok := TargetHandleSynonyms[key]; ok {
		canonical = syn
	}

	if !env.Catalog.MultiInput(typ) {
		if raw != "" && canonical != workflow.HandleInput && canonical != primaryPort {
			env.info(CodeHandleCoerced, e.Target, e.ID, "target handle %q coerced to %q", raw, workflow.HandleInput)
		}
		return workflow.HandleInput
	}

	primary := env.Catalog.PrimaryInput(typ)
	if canonical == "" || canonical == primaryPort || canonical == workflow.HandleInput {
		return primary
	}
	for _, port := range env.Catalog.InputPorts(typ) {
		if strings.EqualFold(port, canonical) {
			return port
		}
	}
	env.info(CodeHandleCoerced, e.Target, e.ID, "target handle %q is not a port of %s; using %q", raw, typ, primary)
	return primary
}
