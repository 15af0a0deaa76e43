// Package pkg provides the libraries behind flowmend, a repair and
// normalization engine for generated workflow graphs.
//
// # Overview
//
// Workflow generators emit graphs that editors refuse to load: several
// triggers, unknown or aliased node types, missing IDs, conditionals whose
// branches carry no handle, log sinks wired straight to the trigger, and no
// positions at all. Flowmend turns such a graph into one that holds every
// structural invariant, and reports what it changed.
//
// The data flow:
//
//	JSON document
//	     ↓
//	[io] (decode, size limits)
//	     ↓
//	[repair] (rebuild → resolve → linearize → layout → handles → branches → sink → finalize)
//	     ↓
//	[render/nodelink] (optional DOT/SVG)
//
// [pipeline] wires these steps together behind a cache and is what the CLI
// and the HTTP server call.
//
// # Main Packages
//
// [workflow] - Graph, Node, Edge, and Position types plus a read-only
// adjacency [workflow.Index].
//
// [workflow/catalog] - The node type catalog: known types, aliases, keyword
// families, roles (trigger, conditional, switch, log sink, failure), and input
// ports. The built-in catalog is TOML and can be extended from a file.
//
// [repair] - The repair stages, [repair.Repair], and [repair.Validate].
//
// [idalloc] - Collision-checked identifier allocation.
//
// [render/nodelink] - Graphviz DOT and SVG output.
//
// [store] - Known-good workflow storage: memory, file, Redis, and MongoDB.
//
// [cache] - Repair result caching: null, file, Redis, and key scoping.
//
// [observability] - Hooks for repair, cache, store, and HTTP events.
//
// [errors] - Coded errors and input validation shared by every package.
//
// # Quick Start
//
//	g, _ := io.ImportJSON("generated.json")
//	res, err := repair.Repair(g, repair.Options{})
//	if errors.IsFatal(err) {
//	    // keep the previous graph
//	}
//	for _, d := range res.Diagnostics.Warnings() {
//	    fmt.Println(d)
//	}
//	_ = io.ExportJSON(res.Graph, "repaired.json")
//
// # Testing
//
//	go test ./...                                            # unit tests
//	FLOWMEND_TEST_REDIS_ADDR=localhost:6379 go test ./pkg/... # with Redis
//	FLOWMEND_TEST_MONGO_URI=mongodb://localhost go test ./pkg/store
//
// [workflow]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/workflow
// [workflow/catalog]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/workflow/catalog
// [repair]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/repair
// [idalloc]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/idalloc
// [io]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/io
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/pipeline
// [store]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/store
// [cache]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/flowmend/pkg/errors
package pkg
