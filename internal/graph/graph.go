package graph

import (
	"github.com/migvista/migvista/internal/alembic"
)

// Node is one revision in the built graph. Nodes are immutable after
// Build; a refresh constructs an entirely new graph.
type Node struct {
	ID           string   `json:"id"`
	ShortID      string   `json:"shortId"`
	Message      string   `json:"message"`
	BranchLabels []string `json:"branchLabels,omitempty"`
	DownRevision string   `json:"downRevision,omitempty"`
	Date         string   `json:"date,omitempty"`
	IsMerge      bool     `json:"isMerge"`
	IsCurrent    bool     `json:"isCurrent"`
	IsHead       bool     `json:"isHead"`
	IsApplied    bool     `json:"isApplied"`
}

// Edge links a child revision to its parent.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the revision DAG, nodes ordered oldest-first. Ancestor walks
// chase integer handles through the parents arena rather than repeating
// string lookups.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	byID    map[string]int // id -> handle into Nodes
	parents []int          // handle -> parent handle, -1 for root or unknown parent
	current []int          // handles of current nodes
}

// Build finalizes parser records into a graph. records arrive
// newest-first, as alembic lists history; the built graph is
// oldest-first. The current and heads sets come from the dedicated
// listing commands and override any header-line hints in the records.
func Build(records []*alembic.RevisionRecord, current, heads map[string]bool) *Graph {
	g := &Graph{
		Nodes: make([]Node, 0, len(records)),
		byID:  make(map[string]int, len(records)),
	}

	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		node := Node{
			ID:           rec.ID,
			ShortID:      rec.ShortID(),
			Message:      rec.Message,
			BranchLabels: rec.BranchLabels,
			DownRevision: rec.DownRevision,
			Date:         rec.Date,
			IsMerge:      rec.IsMerge,
			IsCurrent:    current[rec.ID],
			IsHead:       heads[rec.ID],
		}
		g.byID[node.ID] = len(g.Nodes)
		g.Nodes = append(g.Nodes, node)

		if node.DownRevision != "" {
			g.Edges = append(g.Edges, Edge{Source: node.ID, Target: node.DownRevision})
		}
	}

	g.parents = make([]int, len(g.Nodes))
	for h, node := range g.Nodes {
		g.parents[h] = -1
		if node.DownRevision == "" {
			continue
		}
		if parent, ok := g.byID[node.DownRevision]; ok {
			g.parents[h] = parent
		}
	}

	for h, node := range g.Nodes {
		if node.IsCurrent {
			g.current = append(g.current, h)
		}
	}
	for h := range g.Nodes {
		g.Nodes[h].IsApplied = g.appliedHandle(h)
	}

	return g
}

// Lookup returns the node with the given id.
func (g *Graph) Lookup(id string) (Node, bool) {
	h, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[h], true
}

// Contains reports whether a revision with the given id is in the graph.
func (g *Graph) Contains(id string) bool {
	_, ok := g.byID[id]
	return ok
}

// IsAncestor reports whether a is a strict ancestor of b, i.e. a is
// reached by following parent edges starting from b's parent. A node is
// never its own ancestor. Unknown ids are never ancestors of anything.
func (g *Graph) IsAncestor(a, b string) bool {
	ah, ok := g.byID[a]
	if !ok {
		return false
	}
	bh, ok := g.byID[b]
	if !ok {
		return false
	}
	return g.ancestorHandle(ah, bh)
}

// IsApplied reports whether the revision is current or an ancestor of a
// current revision, i.e. on the path from the root to a live database
// state.
func (g *Graph) IsApplied(id string) bool {
	h, ok := g.byID[id]
	if !ok {
		return false
	}
	return g.appliedHandle(h)
}

func (g *Graph) appliedHandle(h int) bool {
	if g.Nodes[h].IsCurrent {
		return true
	}
	for _, c := range g.current {
		if g.ancestorHandle(h, c) {
			return true
		}
	}
	return false
}

// ancestorHandle walks the parent chain from b looking for a. The
// parser is lenient enough to admit inconsistent data, so the walk is
// bounded by a visited set and treats a cycle as "not an ancestor"
// rather than looping.
func (g *Graph) ancestorHandle(a, b int) bool {
	visited := make([]bool, len(g.Nodes))
	for h := g.parents[b]; h >= 0; h = g.parents[h] {
		if h == a {
			return true
		}
		if visited[h] {
			return false
		}
		visited[h] = true
	}
	return false
}
