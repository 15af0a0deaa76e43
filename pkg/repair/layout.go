package repair

import (
	"math"

	"github.com/matzehuels/flowmend/pkg/workflow"
)

// Layout assigns positions to nodes that lack a valid one. Nodes with a valid
// position are never moved, so user arrangements survive repeated repairs.
//
// Every node gets a level via [AssignLevels]. Nodes of the same level share a
// row spaced LayoutConfig.HSpacing apart, rows are LayoutConfig.VSpacing
// apart, and each row is centered on the widest row. A single collision pass
// then shifts each newly placed node right by NodeWidth+Padding until it no
// longer overlaps a node placed before it.
func Layout(g workflow.Graph, env *Env) workflow.Graph {
	env.enter(StageLayout)

	missing := 0
	for i := range g.Nodes {
		if !g.Nodes[i].HasPosition() {
			missing++
		}
	}
	if missing == 0 {
		return g
	}

	cfg := env.Layout
	idx := workflow.NewIndex(g.Nodes, g.Edges)
	levels := AssignLevels(idx)

	rows := make(map[int][]string)
	maxLevel, widest := 0, 0
	for _, id := range idx.IDs() {
		l := levels[id]
		rows[l] = append(rows[l], id)
		maxLevel = max(maxLevel, l)
		widest = max(widest, len(rows[l]))
	}
	rowWidth := func(n int) float64 {
		return float64(n)*cfg.NodeWidth + float64(n-1)*cfg.HSpacing
	}

	slots := make(map[string]workflow.Position, len(g.Nodes))
	for l := 0; l <= maxLevel; l++ {
		row := rows[l]
		offset := (rowWidth(widest) - rowWidth(len(row))) / 2
		for i, id := range row {
			slots[id] = workflow.Position{
				X: cfg.OriginX + offset + float64(i)*(cfg.NodeWidth+cfg.HSpacing),
				Y: cfg.OriginY + float64(l)*cfg.VSpacing,
			}
		}
	}

	nodes := make([]workflow.Node, len(g.Nodes))
	copy(nodes, g.Nodes)

	var placed []workflow.Position
	for i := range nodes {
		if nodes[i].HasPosition() {
			placed = append(placed, *nodes[i].Position)
		}
	}
	for i := range nodes {
		if nodes[i].HasPosition() {
			continue
		}
		p := slots[nodes[i].ID]
		p, shifted := settle(p, placed, cfg)
		placed = append(placed, p)
		nodes[i].Position = &p
		if shifted {
			env.info(CodePositionShifted, nodes[i].ID, "", "placed %q at (%.0f, %.0f) after resolving an overlap", nodes[i].DisplayLabel(), p.X, p.Y)
		} else {
			env.info(CodePositionAssigned, nodes[i].ID, "", "placed %q at (%.0f, %.0f)", nodes[i].DisplayLabel(), p.X, p.Y)
		}
	}

	g.Nodes = nodes
	return g
}

// AssignLevels returns the longest-path level of every node in idx.
//
// Levels are computed with Kahn's algorithm: roots start at level 0 and each
// child is placed one below its deepest parent. Nodes on a cycle never reach
// in-degree zero; they are then visited in input order and placed one below
// their deepest already-leveled parent, or at level 0 if none is leveled.
func AssignLevels(idx *workflow.Index) map[string]int {
	ids := idx.IDs()
	inDegree := make(map[string]int, len(ids))
	levels := make(map[string]int, len(ids))
	done := make(map[string]bool, len(ids))
	queue := make([]string, 0, len(ids))

	for _, id := range ids {
		degree := idx.InDegree(id)
		inDegree[id] = degree
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		done[curr] = true

		for _, child := range idx.Children(curr) {
			if lvl := levels[curr] + 1; lvl > levels[child] {
				levels[child] = lvl
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	for _, id := range ids {
		if done[id] {
			continue
		}
		lvl := 0
		for _, p := range idx.Parents(id) {
			if done[p] && levels[p]+1 > lvl {
				lvl = levels[p] + 1
			}
		}
		levels[id] = lvl
		done[id] = true
	}
	return levels
}

// settle shifts p right until it overlaps none of placed. A shift moves
// further than NodeWidth, so each placed box can block p at most twice.
func settle(p workflow.Position, placed []workflow.Position, cfg LayoutConfig) (workflow.Position, bool) {
	shifted := false
	for range 2*len(placed) + 1 {
		hit := false
		for _, q := range placed {
			if overlaps(p, q, cfg) {
				hit = true
				break
			}
		}
		if !hit {
			return p, shifted
		}
		p.X += cfg.NodeWidth + cfg.Padding
		shifted = true
	}
	return p, shifted
}

// overlaps reports whether two node boxes anchored at a and b intersect.
func overlaps(a, b workflow.Position, cfg LayoutConfig) bool {
	return math.Abs(a.X-b.X) < cfg.NodeWidth && math.Abs(a.Y-b.Y) < cfg.NodeHeight
}
