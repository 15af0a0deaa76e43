package workflow

// Index is a read-only adjacency view over a node and edge slice.
//
// Unlike the graph itself, Index tolerates cycles, self-loops, and edges whose
// endpoints are missing; such edges are kept in Edges but are not linked into
// the adjacency lists. The zero value is not usable - use NewIndex.
type Index struct {
	nodes    map[string]*Node
	order    []string
	outgoing map[string][]int // node ID -> indexes into edges
	incoming map[string][]int
	edges    []Edge
}

// NewIndex builds an index over nodes and edges. The slices are not copied;
// callers must not modify them while the index is in use. When two nodes
// share an ID the first one wins.
func NewIndex(nodes []Node, edges []Edge) *Index {
	idx := &Index{
		nodes:    make(map[string]*Node, len(nodes)),
		order:    make([]string, 0, len(nodes)),
		outgoing: make(map[string][]int, len(nodes)),
		incoming: make(map[string][]int, len(nodes)),
		edges:    edges,
	}
	for i := range nodes {
		if _, dup := idx.nodes[nodes[i].ID]; dup {
			continue
		}
		idx.nodes[nodes[i].ID] = &nodes[i]
		idx.order = append(idx.order, nodes[i].ID)
	}
	for i, e := range edges {
		if !idx.Has(e.Source) || !idx.Has(e.Target) {
			continue
		}
		idx.outgoing[e.Source] = append(idx.outgoing[e.Source], i)
		idx.incoming[e.Target] = append(idx.incoming[e.Target], i)
	}
	return idx
}

// Has reports whether a node with the given ID exists.
func (x *Index) Has(id string) bool {
	_, ok := x.nodes[id]
	return ok
}

// Node returns the node with the given ID.
func (x *Index) Node(id string) (*Node, bool) {
	n, ok := x.nodes[id]
	return n, ok
}

// IDs returns node IDs in input order.
func (x *Index) IDs() []string { return x.order }

// Outgoing returns the edges leaving id, in input order.
func (x *Index) Outgoing(id string) []Edge {
	return x.collect(x.outgoing[id])
}

// Incoming returns the edges entering id, in input order.
func (x *Index) Incoming(id string) []Edge {
	return x.collect(x.incoming[id])
}

// Children returns the target IDs of edges leaving id, in input order.
// A child reached by several edges appears several times.
func (x *Index) Children(id string) []string {
	out := make([]string, 0, len(x.outgoing[id]))
	for _, i := range x.outgoing[id] {
		out = append(out, x.edges[i].Target)
	}
	return out
}

// Parents returns the source IDs of edges entering id, in input order.
func (x *Index) Parents(id string) []string {
	out := make([]string, 0, len(x.incoming[id]))
	for _, i := range x.incoming[id] {
		out = append(out, x.edges[i].Source)
	}
	return out
}

// OutDegree returns the number of linked edges leaving id.
func (x *Index) OutDegree(id string) int { return len(x.outgoing[id]) }

// InDegree returns the number of linked edges entering id.
func (x *Index) InDegree(id string) int { return len(x.incoming[id]) }

// Roots returns the IDs of nodes without incoming edges, in input order.
func (x *Index) Roots() []string {
	var roots []string
	for _, id := range x.order {
		if len(x.incoming[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// HasEdge reports whether any edge connects source to target.
func (x *Index) HasEdge(source, target string) bool {
	for _, i := range x.outgoing[source] {
		if x.edges[i].Target == target {
			return true
		}
	}
	return false
}

func (x *Index) collect(ids []int) []Edge {
	out := make([]Edge, 0, len(ids))
	for _, i := range ids {
		out = append(out, x.edges[i])
	}
	return out
}
