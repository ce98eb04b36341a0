// Package genflow orchestrates node-graph AI generation: a canvas of nodes
// is scheduled as a DAG, each node dispatched to the best available vendor,
// with progress broadcast per user and vendor task refs persisted for polls.
package genflow

import (
	"context"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mirageworks/genflow/broadcast"
	"github.com/mirageworks/genflow/dispatch"
	"github.com/mirageworks/genflow/graph"
	"github.com/mirageworks/genflow/runtime"
	"github.com/mirageworks/genflow/store"
	"github.com/mirageworks/genflow/store/mem"
	"github.com/mirageworks/genflow/store/postgres"
	"github.com/mirageworks/genflow/taskref"
	"github.com/mirageworks/genflow/types"
)

// Engine bundles the long-lived pieces: the KV store, the vendor registry
// and dispatcher, the task ref store and the progress broadcaster.
type Engine struct {
	opts *types.EngineOptions

	kv          store.Store
	refs        *taskref.Store
	registry    *dispatch.Registry
	dispatcher  *dispatch.Dispatcher
	broadcaster *broadcast.Broadcaster
}

func NewEngine(opts ...types.EngineOption) (*Engine, error) {
	options := types.NewEngineOptions()
	for _, opt := range opts {
		opt(options)
	}

	e := &Engine{opts: options}

	// PostgresConfig takes precedence over MemStore when both are set.
	if options.PostgresConfig != nil {
		cfg := &postgres.Config{
			Host:     options.PostgresConfig.Host,
			Port:     options.PostgresConfig.Port,
			User:     options.PostgresConfig.User,
			Password: options.PostgresConfig.Password,
			Database: options.PostgresConfig.Database,
			SSLMode:  options.PostgresConfig.SSLMode,
		}
		if err := cfg.Validate(); err != nil {
			return nil, errors.Trace(err)
		}
		kv, err := postgres.NewPostgresStore(options.Ctx, cfg)
		if err != nil {
			return nil, errors.Trace(err)
		}
		e.kv = kv
	} else if options.MemStore {
		e.kv = mem.NewMemStore()
	} else {
		kv, err := postgres.NewPostgresStore(options.Ctx, nil)
		if err != nil {
			return nil, errors.Trace(err)
		}
		e.kv = kv
	}

	var publisher broadcast.Publisher
	if options.NATSURL != "" {
		p, err := broadcast.NewNATSPublisher(options.NATSURL)
		if err != nil {
			return nil, errors.Trace(err)
		}
		publisher = p
	}

	e.refs = taskref.New(e.kv)
	e.registry = dispatch.NewRegistry()
	e.dispatcher = dispatch.NewDispatcher(e.registry, e.refs)
	e.broadcaster = broadcast.New(publisher)

	return e, nil
}

func (e *Engine) Registry() *dispatch.Registry {
	return e.registry
}

func (e *Engine) Dispatcher() *dispatch.Dispatcher {
	return e.dispatcher
}

func (e *Engine) Broadcaster() *broadcast.Broadcaster {
	return e.broadcaster
}

func (e *Engine) TaskRefs() *taskref.Store {
	return e.refs
}

// Close releases the broadcaster's publisher and the backing store.
func (e *Engine) Close() error {
	if err := e.broadcaster.Close(); err != nil {
		log.Warnf("engine: close broadcaster: %v", err)
	}
	if closer, ok := e.kv.(interface{ Close() error }); ok {
		return errors.Trace(closer.Close())
	}
	return nil
}

/**
 * RunGraph schedules the given canvas for owner and blocks until every
 * in-scope node settles. The returned StatusStore reflects final node
 * states and remains readable afterwards, also while a run is still in
 * flight when ctx was canceled early.
 */
func (e *Engine) RunGraph(ctx context.Context, owner string, nodes []*types.Node, edges []types.Edge, opts ...types.RunOption) (*runtime.StatusStore, error) {
	options := types.NewRunOptions()
	for _, opt := range opts {
		opt(options)
	}

	g := graph.Build(nodes, edges, options.Scope)
	statuses := runtime.NewStatusStore(nodes)
	exec := &DispatchExecutor{
		Owner:       owner,
		Dispatcher:  e.dispatcher,
		Broadcaster: e.broadcaster,
		Status:      statuses,
	}

	if err := runtime.Run(ctx, g, statuses, exec, options); err != nil {
		return statuses, errors.Trace(err)
	}
	return statuses, nil
}

// RenderDOT renders the canvas with per-node status colors for debugging.
func RenderDOT(nodes []*types.Node, edges []types.Edge, statuses *runtime.StatusStore) string {
	g := graph.Build(nodes, edges, nil)
	var m map[string]types.NodeStatus
	if statuses != nil {
		m = statuses.Statuses()
	}
	return graph.RenderDOT(g, m)
}
