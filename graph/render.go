package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mirageworks/genflow/types"
)

// RenderDOT generates a DOT rendering of the run graph. When statuses is
// non-nil each node is filled with a color matching its current state, which
// makes a half-finished canvas run easy to eyeball in graphviz.
func RenderDOT(g *Graph, statuses map[string]types.NodeStatus) string {
	r := &dotRenderer{sb: &strings.Builder{}}

	r.write("digraph canvas {")

	ids := g.NodeIDs()
	sort.Strings(ids)
	for _, id := range ids {
		r.write("%s [label=%s shape=\"record\"%s]", idString(id), quoteString(id), statusAttr(statuses, id))
	}
	for _, from := range ids {
		for _, to := range g.Adjacency[from] {
			r.write("%s -> %s", idString(from), idString(to))
		}
	}
	r.write("}")
	return r.sb.String()
}

func statusAttr(statuses map[string]types.NodeStatus, id string) string {
	if statuses == nil {
		return ""
	}
	color := ""
	switch statuses[id] {
	case types.NodeQueued, types.NodeRunning:
		color = "yellow"
	case types.NodeSuccess:
		color = "green"
	case types.NodeError:
		color = "red"
	case types.NodeCanceled:
		color = "gray"
	default:
		color = "white"
	}
	return fmt.Sprintf(" style=\"filled\" color=\"%s\"", color)
}

type dotRenderer struct {
	sb *strings.Builder
}

func (d *dotRenderer) write(format string, s ...any) {
	d.sb.WriteString(fmt.Sprintf(format+"\n", s...))
}

func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

var idleChars = []string{" ", "'", "\"", "(", ")", "*", "&", "^", "%", "$", "#", "@", "!", "?", "<", ">", "[", "]", "{", "}", ".", "-"}

func idString(s string) string {
	for _, ch := range idleChars {
		s = strings.ReplaceAll(s, ch, "_")
	}
	return s
}
