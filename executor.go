package genflow

import (
	"context"

	gonanoid "github.com/matoous/go-nanoid/v2"
	log "github.com/sirupsen/logrus"

	"github.com/mirageworks/genflow/broadcast"
	"github.com/mirageworks/genflow/dispatch"
	"github.com/mirageworks/genflow/runtime"
	"github.com/mirageworks/genflow/types"
)

// ExtraVendor lets a node pin its vendor through extras instead of policy.
const ExtraVendor = "vendor"

var _ runtime.NodeExecutor = &DispatchExecutor{}

// DispatchExecutor runs one node by dispatching its task to a vendor and
// reporting progress to the owner's broadcast stream. Cancellation is
// cooperative: the flag is checked before dispatch and again after the
// vendor returns, never mid-call.
type DispatchExecutor struct {
	Owner       string
	Dispatcher  *dispatch.Dispatcher
	Broadcaster *broadcast.Broadcaster
	Status      *runtime.StatusStore
}

func (x *DispatchExecutor) ExecuteNode(ctx context.Context, node *types.Node) {
	x.Status.SetStatus(node.ID, types.NodeRunning)
	x.emit(ctx, &types.ProgressEvent{
		NodeID: node.ID,
		Status: types.TaskRunning,
	}, false)

	if x.Status.Canceled(node.ID) {
		x.Status.SetStatus(node.ID, types.NodeCanceled)
		x.Status.AppendLog(node.ID, "canceled before dispatch")
		x.emit(ctx, &types.ProgressEvent{
			NodeID: node.ID,
			Status: types.TaskFailed,
			Error:  "canceled by user",
		}, false)
		return
	}

	vendor := ""
	if v, _ := node.Extras.GetString(ExtraVendor); v != "" {
		vendor = v
	}
	req := &types.TaskRequest{
		Kind:   node.Kind,
		Prompt: node.Prompt,
		Extras: node.Extras,
	}

	served, res, err := x.Dispatcher.Dispatch(ctx, x.Owner, vendor, req)
	if err != nil {
		log.Warnf("node %s: dispatch failed: %v", node.ID, err)
		x.Status.AppendLog(node.ID, err.Error())
		x.Status.SetStatus(node.ID, types.NodeError)
		x.emit(ctx, &types.ProgressEvent{
			NodeID: node.ID,
			Status: types.TaskFailed,
			Error:  err.Error(),
		}, false)
		return
	}

	taskID := res.ID
	if taskID == "" {
		taskID = gonanoid.Must()
	}

	if x.Status.Canceled(node.ID) {
		x.Status.SetStatus(node.ID, types.NodeCanceled)
		x.Status.AppendLog(node.ID, "canceled after dispatch")
		// A terminal event clears the pending snapshot entry for this task.
		x.emit(ctx, &types.ProgressEvent{
			Vendor: served,
			NodeID: node.ID,
			TaskID: taskID,
			Status: types.TaskFailed,
			Error:  "canceled by user",
		}, false)
		return
	}

	switch res.Status {
	case types.TaskSucceeded:
		x.Status.SetProgress(node.ID, 100)
		x.Status.SetStatus(node.ID, types.NodeSuccess)
		x.emit(ctx, &types.ProgressEvent{
			Vendor:   served,
			NodeID:   node.ID,
			TaskID:   taskID,
			Status:   types.TaskSucceeded,
			Progress: 100,
		}, false)

	case types.TaskFailed:
		x.Status.AppendLog(node.ID, res.Error)
		x.Status.SetStatus(node.ID, types.NodeError)
		x.emit(ctx, &types.ProgressEvent{
			Vendor: served,
			NodeID: node.ID,
			TaskID: taskID,
			Status: types.TaskFailed,
			Error:  res.Error,
		}, false)

	default:
		// Queued or running vendor-side. The node's scheduling duty is done;
		// the caller polls the task to completion via the result endpoint.
		x.Status.AppendLog(node.ID, "task submitted to "+served)
		x.Status.SetStatus(node.ID, types.NodeSuccess)
		x.emit(ctx, &types.ProgressEvent{
			Vendor: served,
			NodeID: node.ID,
			TaskID: taskID,
			Status: res.Status,
		}, dispatch.PollOnly(served))
	}
}

func (x *DispatchExecutor) emit(ctx context.Context, ev *types.ProgressEvent, storeOnly bool) {
	if x.Broadcaster == nil {
		return
	}
	if storeOnly {
		x.Broadcaster.EmitStoreOnly(ctx, x.Owner, ev)
		return
	}
	x.Broadcaster.Emit(ctx, x.Owner, ev)
}
