package types

import (
	"encoding/json"
	"time"
)

// TaskRequest is the vendor-neutral description of one generation call.
// It is passed opaquely to vendor adapters.
type TaskRequest struct {
	Kind   TaskKind `json:"kind"`
	Prompt string   `json:"prompt"`
	Extras Data     `json:"extras,omitempty"`
}

// Asset is one output artifact of a task.
type Asset struct {
	URL  string `json:"url"`
	Mime string `json:"mime,omitempty"`
}

// TaskResult is what a vendor adapter returns. Vendor carries the composite
// name of the vendor that actually served the call, which may differ from
// the nominal candidate when a proxy handled it.
type TaskResult struct {
	ID     string          `json:"id"`
	Kind   TaskKind        `json:"kind"`
	Status TaskStatus      `json:"status"`
	Vendor string          `json:"vendor,omitempty"`
	Assets []Asset         `json:"assets,omitempty"`
	Error  string          `json:"error,omitempty"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

// ProgressEvent is the unit of the broadcast stream and the pending snapshot.
type ProgressEvent struct {
	UserID   string     `json:"user_id"`
	Vendor   string     `json:"vendor,omitempty"`
	NodeID   string     `json:"node_id,omitempty"`
	TaskID   string     `json:"task_id,omitempty"`
	Status   TaskStatus `json:"status"`
	Progress int        `json:"progress"`
	Error    string     `json:"error,omitempty"`
	Time     time.Time  `json:"time"`
}

// VendorTaskRef records which vendor served a task so a later poll can be
// routed without the caller knowing the vendor. Unique per (owner, kind,
// task id); upserts are last-write-wins.
type VendorTaskRef struct {
	Owner     string    `json:"owner"`
	Kind      string    `json:"kind"`
	TaskID    string    `json:"task_id"`
	Vendor    string    `json:"vendor"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
