package runtime

import (
	"sync"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mirageworks/genflow/types"
)

// StatusStore serializes every mutation of the shared node state behind one
// mutex. Callers mutate nodes through it only; the Node structs themselves
// stay owned by the caller's graph and are updated in place.
//
// Writes are last-write-wins. In particular a late-resolving success can
// overwrite a canceled status; cancellation is cooperative and only observed
// by executors at their own suspension points.
type StatusStore struct {
	mu    sync.RWMutex
	nodes map[string]*types.Node
}

func NewStatusStore(nodes []*types.Node) *StatusStore {
	s := &StatusStore{nodes: make(map[string]*types.Node, len(nodes))}
	for _, n := range nodes {
		if n.Status == "" {
			n.Status = types.NodeIdle
		}
		s.nodes[n.ID] = n
	}
	return s
}

func (s *StatusStore) get(id string) (*types.Node, error) {
	n, exists := s.nodes[id]
	if !exists {
		return nil, errors.NotFoundf("node %q", id)
	}
	return n, nil
}

// Reset returns a node to a fresh pre-run state.
func (s *StatusStore) Reset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.get(id)
	if err != nil {
		return errors.Trace(err)
	}
	n.Status = types.NodeIdle
	n.Progress = 0
	n.Canceled = false
	n.Logs = nil
	return nil
}

func (s *StatusStore) SetStatus(id string, status types.NodeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.get(id)
	if err != nil {
		return errors.Trace(err)
	}
	log.Debugf("node %s: %s -> %s", id, n.Status, status)
	n.Status = status
	return nil
}

func (s *StatusStore) SetProgress(id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.get(id)
	if err != nil {
		return errors.Trace(err)
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	n.Progress = progress
	return nil
}

func (s *StatusStore) AppendLog(id string, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.get(id)
	if err != nil {
		return errors.Trace(err)
	}
	n.Logs = append(n.Logs, types.NodeLog{Time: time.Now(), Line: line})
	return nil
}

// Cancel raises the cooperative cancel flag. It does not stop in-flight
// work; executors check Canceled at their suspension points.
func (s *StatusStore) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.get(id)
	if err != nil {
		return errors.Trace(err)
	}
	n.Canceled = true
	return nil
}

func (s *StatusStore) Canceled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, exists := s.nodes[id]
	return exists && n.Canceled
}

func (s *StatusStore) Status(id string) (types.NodeStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.get(id)
	if err != nil {
		return "", errors.Trace(err)
	}
	return n.Status, nil
}

// Snapshot returns a copy of the node's current state.
func (s *StatusStore) Snapshot(id string) (types.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.get(id)
	if err != nil {
		return types.Node{}, errors.Trace(err)
	}
	c := *n
	c.Logs = append([]types.NodeLog(nil), n.Logs...)
	c.Extras = n.Extras.Clone()
	return c, nil
}

// nodeRef hands the scheduler the shared Node pointer for an executor call.
func (s *StatusStore) nodeRef(id string) *types.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[id]
}

// Statuses returns the current status of every node in the store.
func (s *StatusStore) Statuses() map[string]types.NodeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := make(map[string]types.NodeStatus, len(s.nodes))
	for id, n := range s.nodes {
		m[id] = n.Status
	}
	return m
}
