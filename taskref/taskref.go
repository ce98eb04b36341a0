package taskref

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/mirageworks/genflow/store"
	"github.com/mirageworks/genflow/types"
	"github.com/mirageworks/genflow/utils"
)

const (
	RefPath = "/task_ref/"
)

// Store persists which vendor served a task, keyed by (owner, kind, task
// id), on top of the generic KV store. Upserts are idempotent and
// last-write-wins per key.
type Store struct {
	kv store.Store
}

func New(kv store.Store) *Store {
	return &Store{kv: kv}
}

func refKey(owner, kind, taskID string) string {
	return owner + "|" + kind + "|" + taskID
}

func validKind(kind string) bool {
	return kind == types.RefKindImage || kind == types.RefKindVideo
}

func (s *Store) Upsert(ctx context.Context, owner, kind, taskID, vendor string) error {
	if owner == "" || taskID == "" || vendor == "" {
		return errors.BadRequestf("owner, task id and vendor are required")
	}
	if !validKind(kind) {
		return errors.BadRequestf("task ref kind %q", kind)
	}

	key := refKey(owner, kind, taskID)
	now := time.Now().UTC()
	ref := &types.VendorTaskRef{
		Owner:     owner,
		Kind:      kind,
		TaskID:    taskID,
		Vendor:    vendor,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Keep the original creation time across overwrites.
	if b, err := s.kv.Get(ctx, RefPath, key); err == nil && b != nil {
		prev := &types.VendorTaskRef{}
		if err := utils.Unserialize(b, prev); err == nil && !prev.CreatedAt.IsZero() {
			ref.CreatedAt = prev.CreatedAt
		}
	}

	b, err := utils.Serialize(ref)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(s.kv.Set(ctx, RefPath, key, b))
}

// Lookup returns the vendor recorded for a task, or a NotFound error.
func (s *Store) Lookup(ctx context.Context, owner, kind, taskID string) (string, error) {
	ref, err := s.Get(ctx, owner, kind, taskID)
	if err != nil {
		return "", errors.Trace(err)
	}
	return ref.Vendor, nil
}

func (s *Store) Get(ctx context.Context, owner, kind, taskID string) (*types.VendorTaskRef, error) {
	if !validKind(kind) {
		return nil, errors.BadRequestf("task ref kind %q", kind)
	}

	b, err := s.kv.Get(ctx, RefPath, refKey(owner, kind, taskID))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if b == nil {
		return nil, errors.NotFoundf("task ref %s/%s/%s", owner, kind, taskID)
	}

	ref := &types.VendorTaskRef{}
	if err := utils.Unserialize(b, ref); err != nil {
		return nil, errors.Trace(err)
	}
	return ref, nil
}

func (s *Store) Remove(ctx context.Context, owner, kind, taskID string) error {
	return errors.Trace(s.kv.Remove(ctx, RefPath, refKey(owner, kind, taskID)))
}

// ListByOwner returns every ref of one owner and kind, in task id order.
func (s *Store) ListByOwner(ctx context.Context, owner, kind string) ([]*types.VendorTaskRef, error) {
	if owner == "" {
		return nil, errors.BadRequestf("owner is required")
	}
	if !validKind(kind) {
		return nil, errors.BadRequestf("task ref kind %q", kind)
	}

	keyPrefix := refKey(owner, kind, "")
	var taskIDs []string
	err := s.kv.List(ctx, RefPath, func(key string) bool {
		if strings.HasPrefix(key, keyPrefix) {
			taskIDs = append(taskIDs, strings.TrimPrefix(key, keyPrefix))
		}
		return true
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	refs := make([]*types.VendorTaskRef, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		ref, err := s.Get(ctx, owner, kind, taskID)
		if err != nil {
			// a ref removed between List and Get is not an error
			if errors.IsNotFound(err) {
				continue
			}
			return nil, errors.Trace(err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
