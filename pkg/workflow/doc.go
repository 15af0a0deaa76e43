// Package workflow defines the graph model shared by the workflow editor, the
// AI generator, and the repair engine.
//
// # Overview
//
// A workflow is a pair of slices: [Node] values (trigger and action steps) and
// [Edge] values connecting a source node's output port to a target node's
// input port. The JSON shape is the one the editor exchanges:
//
//	{
//	  "nodes": [
//	    {"id": "n1", "type": "form_submission_trigger", "position": {"x": 100, "y": 100}},
//	    {"id": "n2", "type": "google_sheets", "label": "Append row"}
//	  ],
//	  "edges": [
//	    {"id": "e1", "source": "n1", "target": "n2", "sourceHandle": "output", "targetHandle": "input"}
//	  ]
//	}
//
// # Handles
//
// Edge handles are semantic port names. After repair they are always one of
// the canonical names ([HandleOutput], [HandleInput], [HandleTrue],
// [HandleFalse], [HandleDefault]) or a port declared by the target node type
// (for multi-input nodes such as agents) or a switch case port.
//
// # Adjacency
//
// [Index] gives a read-only adjacency view that tolerates the malformed
// inputs the repair engine has to cope with: cycles, self-loops, dangling
// edges, and duplicate node IDs.
package workflow
