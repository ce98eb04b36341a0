package dispatch

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mirageworks/genflow/types"
)

// StaticAdapter is an in-process Adapter that fabricates results. It backs
// the daemon's mock mode, the examples, and tests; never wire it to a
// production vendor slot.
type StaticAdapter struct {
	Vendor string
	// Async makes Execute return a queued task that Fetch later reports
	// as succeeded, mimicking poll-style vendors.
	Async bool
	// Err, when set, makes every call fail with a vendor error.
	Err error
}

func NewStaticAdapter(vendor string) *StaticAdapter {
	return &StaticAdapter{Vendor: vendor}
}

func (s *StaticAdapter) Execute(ctx context.Context, req *types.TaskRequest) (*types.TaskResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	res := &types.TaskResult{
		ID:     fmt.Sprintf("%s-%s", s.Vendor, id),
		Kind:   req.Kind,
		Status: types.TaskSucceeded,
		Vendor: s.Vendor,
		Assets: []types.Asset{{URL: fmt.Sprintf("https://assets.invalid/%s/%s", s.Vendor, id)}},
	}
	if s.Async {
		res.Status = types.TaskQueued
		res.Assets = nil
	}
	return res, nil
}

func (s *StaticAdapter) Fetch(ctx context.Context, taskID string, req *types.TaskRequest) (*types.TaskResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return &types.TaskResult{
		ID:     taskID,
		Kind:   req.Kind,
		Status: types.TaskSucceeded,
		Vendor: s.Vendor,
		Assets: []types.Asset{{URL: fmt.Sprintf("https://assets.invalid/%s/%s", s.Vendor, taskID)}},
	}, nil
}
