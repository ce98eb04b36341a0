package dispatch

import (
	"context"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mirageworks/genflow/taskref"
	"github.com/mirageworks/genflow/types"
)

// Dispatcher resolves and executes one logical task request against the
// best available vendor.
type Dispatcher struct {
	reg  *Registry
	refs *taskref.Store
}

func NewDispatcher(reg *Registry, refs *taskref.Store) *Dispatcher {
	return &Dispatcher{reg: reg, refs: refs}
}

/**
 * Dispatch tries vendor candidates strictly in order: an explicit vendor is
 * the only candidate, "auto" (or empty) resolves candidates from the kind
 * policy. Fallback is sequential on purpose: two paid vendors must never
 * be billed for the same logical request. The first success is tagged with
 * the vendor that actually served it and, for pollable task families, a
 * vendor task ref is upserted so later polls can be routed. When every
 * candidate fails only the last error is surfaced; earlier ones are logged.
 */
func (d *Dispatcher) Dispatch(ctx context.Context, owner string, vendor string, req *types.TaskRequest) (string, *types.TaskResult, error) {
	if req == nil || req.Kind == "" {
		return "", nil, errors.BadRequestf("task kind is required")
	}

	var candidates []VendorName
	if vendor == "" || Normalize(vendor).Composite == VendorAuto {
		names, err := Candidates(req.Kind, req.Extras)
		if err != nil {
			return "", nil, errors.Trace(err)
		}
		for _, name := range names {
			candidates = append(candidates, Normalize(name))
		}
	} else {
		candidates = []VendorName{Normalize(vendor)}
	}

	var lastErr error
	for _, vn := range candidates {
		a := d.reg.get(vn.Dispatch)
		if a == nil {
			lastErr = errors.NotFoundf("vendor %q", vn.Dispatch)
			log.Warnf("dispatch %s: vendor %s not registered", req.Kind, vn.Dispatch)
			continue
		}

		res, err := a.Execute(ctx, req)
		if err != nil {
			lastErr = err
			log.Warnf("dispatch %s: vendor %s failed: %v", req.Kind, vn.Composite, err)
			continue
		}

		served := res.Vendor
		if served == "" {
			served = vn.Composite
			res.Vendor = served
		}
		d.persistRef(ctx, owner, req.Kind, res.ID, served)
		return served, res, nil
	}
	return "", nil, errors.Trace(lastErr)
}

// Resolve routes a poll for an already-submitted task. When the caller does
// not know the vendor ("auto" or empty), the persisted task ref decides.
func (d *Dispatcher) Resolve(ctx context.Context, owner string, taskID string, vendor string, req *types.TaskRequest) (string, *types.TaskResult, error) {
	if taskID == "" {
		return "", nil, errors.BadRequestf("task id is required")
	}
	if req == nil {
		req = &types.TaskRequest{}
	}

	if vendor == "" || Normalize(vendor).Composite == VendorAuto {
		found, err := d.lookupRef(ctx, owner, req.Kind, taskID)
		if err != nil {
			return "", nil, errors.Trace(err)
		}
		vendor = found
	}

	vn := Normalize(vendor)
	a := d.reg.get(vn.Dispatch)
	if a == nil {
		return "", nil, errors.NotFoundf("vendor %q", vn.Dispatch)
	}

	res, err := a.Fetch(ctx, taskID, req)
	if err != nil {
		return "", nil, errors.Trace(err)
	}
	if res.Vendor == "" {
		res.Vendor = vn.Composite
	}
	return res.Vendor, res, nil
}

// persistRef records the winning vendor for pollable kinds. Best-effort:
// a storage hiccup must not fail a dispatch that already succeeded.
func (d *Dispatcher) persistRef(ctx context.Context, owner string, kind types.TaskKind, taskID, vendor string) {
	refKind, ok := types.RefKindFor(kind)
	if !ok || taskID == "" || d.refs == nil {
		return
	}
	if err := d.refs.Upsert(ctx, owner, refKind, taskID, vendor); err != nil {
		log.Warnf("dispatch %s: persist task ref %s: %v", kind, taskID, err)
	}
}

// lookupRef finds the serving vendor for a task. Without a kind hint both
// pollable families are checked.
func (d *Dispatcher) lookupRef(ctx context.Context, owner string, kind types.TaskKind, taskID string) (string, error) {
	if d.refs == nil {
		return "", errors.NotFoundf("vendor for task %q", taskID)
	}

	refKinds := []string{types.RefKindImage, types.RefKindVideo}
	if rk, ok := types.RefKindFor(kind); ok {
		refKinds = []string{rk}
	}

	for _, rk := range refKinds {
		vendor, err := d.refs.Lookup(ctx, owner, rk, taskID)
		if err == nil {
			return vendor, nil
		}
		if !errors.IsNotFound(err) {
			return "", errors.Trace(err)
		}
	}
	return "", errors.NotFoundf("vendor for task %q", taskID)
}
