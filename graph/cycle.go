package graph

import (
	"github.com/mirageworks/genflow/utils"
)

/**
 * HasCycle runs Kahn's algorithm over a cloned in-degree map: seed a queue
 * with zero-in-degree nodes, pop and decrement successors, count visits.
 * Fewer visits than nodes means some nodes can never be freed, i.e. a cycle.
 * Cost O(V+E). The working copy leaves the graph untouched.
 */
func HasCycle(g *Graph) bool {
	inDeg := utils.CloneMap(g.InDegree)

	queue := make([]string, 0, len(inDeg))
	for id, deg := range inDeg {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++

		for _, succ := range g.Adjacency[id] {
			if inDeg[succ]--; inDeg[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}
	return visited != len(inDeg)
}
