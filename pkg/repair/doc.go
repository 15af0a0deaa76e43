// Package repair turns malformed workflow graphs into consistent ones.
//
// Graphs produced by generators or hand edits routinely carry duplicate IDs,
// unknown node types, missing positions, free-form handle names, and
// conditional nodes with two "true" branches. [Repair] fixes all of these in a
// fixed sequence of stages, each a function from graph to graph:
//
//	RebuildIDs        fresh node_/edge_ IDs, duplicates and dangling edges dropped
//	ResolveTypes      catalog type resolution and label/icon/category backfill
//	Linearize         one primary trigger; strict chain when nothing branches
//	Layout            positions for unplaced nodes, overlap resolution
//	NormalizeHandles  canonical source and target port names
//	RepairBranches    at most one "true" and one "false" edge per conditional
//	WireLogSink       log sinks fed only by terminal nodes, success/failure split
//	Finalize          deduplication and integrity check
//
// Each stage can be run on its own against an [Env], which carries the
// catalog, the identifier allocator, the layout geometry, and the collected
// [Diagnostics].
//
// # Failure
//
// Repair is total: every input produces a repaired graph, except when the
// identifier allocator is exhausted or duplicate IDs survive [Finalize]. Both
// are engine defects rather than data problems; the caller must keep its
// previous graph.
//
// # Diagnostics
//
// Every change a stage makes is recorded as a [Diagnostic]. The repaired graph
// does not depend on them; they exist for logs and debugging views.
//
// # Idempotence
//
// Repairing a repaired graph yields the same shape (node and edge counts,
// positions, handles); only the IDs differ, since RebuildIDs always mints new
// ones.
package repair
