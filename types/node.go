package types

import "time"

// Node is one vertex of a canvas graph. The struct is owned by the caller;
// during a run it is mutated in place through the runtime status store only.
type Node struct {
	ID     string
	Kind   TaskKind
	Prompt string
	Extras Data

	Status   NodeStatus
	Progress int
	Logs     []NodeLog
	Canceled bool
}

// NodeLog is one timestamped log line attached to a node.
type NodeLog struct {
	Time time.Time
	Line string
}

// Edge is a directed dependency: Target runs after Source.
type Edge struct {
	Source string
	Target string
}
