package dispatch

import (
	"context"
	"sync"

	"github.com/juju/errors"

	"github.com/mirageworks/genflow/types"
)

// Adapter is one vendor's opaque capability. The per-vendor payload formats
// live entirely behind this interface.
type Adapter interface {
	// Execute submits one task and returns the vendor's view of it, which
	// may still be queued/running for asynchronous vendors.
	Execute(ctx context.Context, req *types.TaskRequest) (*types.TaskResult, error)
	// Fetch polls the vendor for the current state of a submitted task.
	Fetch(ctx context.Context, taskID string, req *types.TaskRequest) (*types.TaskResult, error)
}

type Registry struct {
	mu sync.Mutex

	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

func (r *Registry) Register(vendor string, a Adapter) error {
	if a == nil {
		return errors.BadRequestf("adapter for vendor %q is nil", vendor)
	}
	name := Normalize(vendor).Dispatch

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; exists {
		return errors.AlreadyExistsf("vendor: %s", name)
	}
	r.adapters[name] = a
	return nil
}

func (r *Registry) get(vendor string) Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.adapters[vendor]
}

// Vendors returns the registered vendor ids.
func (r *Registry) Vendors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
