package types

// NodeStatus is the lifecycle state of a canvas node within one run.
// A node only ever advances idle -> queued -> running -> terminal.
type NodeStatus string

const (
	NodeIdle     NodeStatus = "idle"
	NodeQueued   NodeStatus = "queued"
	NodeRunning  NodeStatus = "running"
	NodeSuccess  NodeStatus = "success"
	NodeError    NodeStatus = "error"
	NodeCanceled NodeStatus = "canceled"
)

// Terminal reports whether the status ends a node's run.
func (s NodeStatus) Terminal() bool {
	return s == NodeSuccess || s == NodeError || s == NodeCanceled
}

// TaskStatus is the state of a vendor-side task.
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// TaskKind classifies what a node asks a vendor to produce.
type TaskKind string

const (
	KindImage        TaskKind = "image"
	KindImageEdit    TaskKind = "image-edit"
	KindVideo        TaskKind = "video"
	KindChat         TaskKind = "chat"
	KindPromptRefine TaskKind = "prompt-refine"
)

// Ref kinds are the task families that get a persisted vendor reference.
// Chat-style kinds complete synchronously and are never polled.
const (
	RefKindImage = "image"
	RefKindVideo = "video"
)

// RefKindFor maps a task kind to its persisted ref family.
func RefKindFor(kind TaskKind) (string, bool) {
	switch kind {
	case KindImage, KindImageEdit:
		return RefKindImage, true
	case KindVideo:
		return RefKindVideo, true
	}
	return "", false
}
