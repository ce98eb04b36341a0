package runtime

import (
	"context"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mirageworks/genflow/graph"
	"github.com/mirageworks/genflow/types"
)

const (
	MinConcurrency = 1
	MaxConcurrency = 8
)

const cycleMessage = "cycle detected in graph"

// NodeExecutor performs one node's actual generation work.
//
// The scheduler does not take a return value: the executor must leave a
// terminal status in the StatusStore before returning, and the scheduler
// reads the outcome back to decide whether descendants run or are blocked.
// Executors are expected to observe the cooperative cancel flag at their own
// suspension points; work already in flight is never aborted.
type NodeExecutor interface {
	ExecuteNode(ctx context.Context, node *types.Node)
}

/**
 * Run executes the in-scope nodes of g with bounded parallelism.
 *
 * A cycle aborts the whole run before anything executes: every in-scope
 * node is marked error and a CycleError is returned. Otherwise nodes start
 * as their in-degree reaches zero, at most Concurrency at a time; a node
 * whose upstream failed never executes and is marked error itself, blocking
 * its own descendants in turn. Run returns once every in-scope node is
 * accounted for, or earlier when ctx is canceled (in-flight executions then
 * finish in the background against the shared status store).
 */
func Run(ctx context.Context, g *graph.Graph, store *StatusStore, exec NodeExecutor, opts *types.RunOptions) error {
	if exec == nil {
		return errors.BadRequestf("node executor is nil")
	}
	if opts == nil {
		opts = types.NewRunOptions()
	}
	concurrency := opts.Concurrency
	if concurrency < MinConcurrency {
		concurrency = MinConcurrency
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	if g.Size() == 0 {
		return nil
	}

	for _, id := range g.NodeIDs() {
		if err := store.Reset(id); err != nil {
			return errors.Trace(err)
		}
	}

	if graph.HasCycle(g) {
		for _, id := range g.NodeIDs() {
			store.SetStatus(id, types.NodeError)
			store.AppendLog(id, cycleMessage)
		}
		return types.NewCycleErrorf("%s: run aborted", cycleMessage)
	}

	r := &graphRun{
		graph:       g,
		store:       store,
		exec:        exec,
		ctx:         ctx,
		wp:          workerpool.New(concurrency),
		concurrency: concurrency,
		inDeg:       make(map[string]int, g.Size()),
		blocked:     make(map[string]bool),
		done:        make(map[string]bool, g.Size()),
		total:       g.Size(),
		finished:    make(chan struct{}),
	}
	for id, deg := range g.InDegree {
		r.inDeg[id] = deg
		if deg == 0 {
			r.ready = append(r.ready, id)
		}
	}

	r.mu.Lock()
	r.dispatchLocked()
	r.mu.Unlock()

	select {
	case <-r.finished:
		r.wp.StopWait()
		return nil
	case <-ctx.Done():
		// Cooperative model: in-flight nodes are not aborted. Drain the
		// pool off the caller's path so Run returns promptly.
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		go r.wp.Stop()
		return errors.Trace(ctx.Err())
	}
}

type graphRun struct {
	graph *graph.Graph
	store *StatusStore
	exec  NodeExecutor
	ctx   context.Context
	wp    *workerpool.WorkerPool

	concurrency int
	total       int

	mu       sync.Mutex
	inDeg    map[string]int
	blocked  map[string]bool
	done     map[string]bool
	ready    []string
	running  int
	closed   bool
	stopped  bool
	finished chan struct{}
}

// dispatchLocked launches ready nodes while concurrency slots remain.
// Blocked nodes are settled inline without consuming a slot. Callers hold mu.
// Nothing new is submitted once the run was stopped by cancellation; the
// pool rejects submissions after Stop.
func (r *graphRun) dispatchLocked() {
	if r.stopped {
		return
	}
	for r.running < r.concurrency && len(r.ready) > 0 {
		id := r.ready[0]
		r.ready = r.ready[1:]

		if r.blocked[id] {
			r.store.SetStatus(id, types.NodeError)
			r.store.AppendLog(id, "blocked by upstream failure")
			r.settleLocked(id, false)
			continue
		}

		r.store.SetStatus(id, types.NodeQueued)
		r.running++
		node := r.store.nodeRef(id)
		r.wp.Submit(func() {
			r.execute(node)
		})
	}

	if !r.closed && len(r.done) == r.total {
		r.closed = true
		close(r.finished)
	}
}

func (r *graphRun) execute(node *types.Node) {
	r.exec.ExecuteNode(r.ctx, node)

	status, err := r.store.Status(node.ID)
	if err != nil {
		log.Errorf("node %s: read status after execution: %v", node.ID, err)
		status = types.NodeError
	}
	if !status.Terminal() {
		log.Errorf("node %s: executor returned non-terminal status %s", node.ID, status)
		r.store.SetStatus(node.ID, types.NodeError)
		r.store.AppendLog(node.ID, "executor returned without terminal status")
		status = types.NodeError
	}

	r.mu.Lock()
	r.running--
	r.settleLocked(node.ID, status == types.NodeSuccess)
	r.dispatchLocked()
	r.mu.Unlock()
}

// settleLocked marks a node done and releases its successors: a failed or
// blocked node taints every direct successor, and regardless of outcome each
// successor's in-degree drops, entering the ready queue at zero.
func (r *graphRun) settleLocked(id string, ok bool) {
	r.done[id] = true
	for _, succ := range r.graph.Adjacency[id] {
		if !ok {
			r.blocked[succ] = true
		}
		if r.inDeg[succ]--; r.inDeg[succ] == 0 {
			r.ready = append(r.ready, succ)
		}
	}
}
