// Package nodelink renders workflow graphs as Graphviz node-link diagrams.
//
// The output is a debugging aid for inspecting what the repair engine did:
// edges are labelled with their handles, node shapes follow the node's role
// in the catalog (triggers, conditionals, switches, log sinks, failure
// terminals), and the detailed mode adds each node's ID, type, and canvas
// position to its label.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(dot)
//
// Graphviz computes its own layout; the canvas positions assigned by the
// repair engine appear only in detailed labels. Rendering to SVG happens
// in-process through [github.com/goccy/go-graphviz].
package nodelink
