package graph

import (
	"github.com/mirageworks/genflow/types"
)

// Graph is the derived view of a node/edge list for one run: adjacency,
// in-degree and upstream maps restricted to the nodes in scope. It is
// rebuilt fresh per run and never persisted.
type Graph struct {
	Adjacency map[string][]string
	InDegree  map[string]int
	Upstream  map[string][]string
}

// Build derives the run graph. When scope is non-empty only those node ids
// participate; edges with an endpoint outside the scope are dropped.
//
// Self-referencing edges are not rejected here: a self-loop keeps its node's
// in-degree above zero forever and is reported by HasCycle before any
// execution starts.
func Build(nodes []*types.Node, edges []types.Edge, scope []string) *Graph {
	inScope := make(map[string]bool, len(nodes))
	if len(scope) == 0 {
		for _, n := range nodes {
			inScope[n.ID] = true
		}
	} else {
		known := make(map[string]bool, len(nodes))
		for _, n := range nodes {
			known[n.ID] = true
		}
		for _, id := range scope {
			if known[id] {
				inScope[id] = true
			}
		}
	}

	g := &Graph{
		Adjacency: make(map[string][]string, len(inScope)),
		InDegree:  make(map[string]int, len(inScope)),
		Upstream:  make(map[string][]string, len(inScope)),
	}
	for id := range inScope {
		g.Adjacency[id] = nil
		g.InDegree[id] = 0
		g.Upstream[id] = nil
	}

	for _, e := range edges {
		if !inScope[e.Source] || !inScope[e.Target] {
			continue
		}
		g.Adjacency[e.Source] = append(g.Adjacency[e.Source], e.Target)
		g.InDegree[e.Target]++
		g.Upstream[e.Target] = append(g.Upstream[e.Target], e.Source)
	}
	return g
}

// Size returns the number of in-scope nodes.
func (g *Graph) Size() int {
	return len(g.InDegree)
}

// NodeIDs returns the in-scope node ids in no particular order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.InDegree))
	for id := range g.InDegree {
		ids = append(ids, id)
	}
	return ids
}
