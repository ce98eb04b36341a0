package broadcast

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mirageworks/genflow/types"
)

const (
	subscriberBuffer = 64
	pendingWildcard  = "*"
)

// SubjectPrefix is the NATS subject prefix for mirrored progress events.
const SubjectPrefix = "genflow.progress."

// Broadcaster fans progress events out to per-user live subscribers and
// keeps an in-memory pending snapshot for poll-based consumers. Terminal
// events evict their snapshot entry, bounding memory and preventing stale
// "still pending" reads.
type Broadcaster struct {
	mu sync.Mutex

	// userID -> snapshot key -> latest non-terminal event
	pending map[string]map[string]*types.ProgressEvent
	subs    map[string]map[*Subscriber]struct{}

	publisher Publisher
}

// New creates a Broadcaster. A nil publisher disables external mirroring.
func New(publisher Publisher) *Broadcaster {
	if publisher == nil {
		publisher = &NoopPublisher{}
	}
	return &Broadcaster{
		pending:   make(map[string]map[string]*types.ProgressEvent),
		subs:      make(map[string]map[*Subscriber]struct{}),
		publisher: publisher,
	}
}

// Subscriber is one live consumer of a single user's events.
type Subscriber struct {
	userID string
	ch     chan *types.ProgressEvent
}

// Events is the subscriber's delivery channel. Slow consumers drop events;
// the pending snapshot is the catch-up path.
func (s *Subscriber) Events() <-chan *types.ProgressEvent {
	return s.ch
}

func pendingKey(ev *types.ProgressEvent) string {
	part := func(s string) string {
		if s == "" {
			return pendingWildcard
		}
		return s
	}
	return part(ev.Vendor) + "|" + part(ev.NodeID) + "|" + part(ev.TaskID)
}

// Emit updates the pending snapshot and forwards the event to the user's
// live subscribers, then mirrors it to the external publisher best-effort.
func (b *Broadcaster) Emit(ctx context.Context, userID string, ev *types.ProgressEvent) {
	b.prepare(userID, ev)
	b.store(userID, ev)
	b.forward(userID, ev)

	if err := b.publisher.Publish(ctx, SubjectPrefix+userID, ev); err != nil {
		log.Warnf("broadcast: publish progress for %s: %v", userID, err)
	}
}

// EmitStoreOnly updates the pending snapshot without touching live
// subscribers; used for vendors whose results are retrieved by polling.
func (b *Broadcaster) EmitStoreOnly(ctx context.Context, userID string, ev *types.ProgressEvent) {
	b.prepare(userID, ev)
	b.store(userID, ev)
}

func (b *Broadcaster) prepare(userID string, ev *types.ProgressEvent) {
	ev.UserID = userID
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
}

func (b *Broadcaster) store(userID string, ev *types.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.pending[userID]

	// A node's newest event supersedes earlier ones for the same node, even
	// when the vendor or task id has since been filled in and the snapshot
	// key no longer matches.
	if m != nil && ev.NodeID != "" {
		for key, old := range m {
			if old.NodeID == ev.NodeID {
				delete(m, key)
			}
		}
	}

	if ev.Status.Terminal() {
		if m != nil {
			delete(m, pendingKey(ev))
			if len(m) == 0 {
				delete(b.pending, userID)
			}
		}
		return
	}

	if m == nil {
		m = make(map[string]*types.ProgressEvent)
		b.pending[userID] = m
	}
	c := *ev
	m[pendingKey(ev)] = &c
}

func (b *Broadcaster) forward(userID string, ev *types.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[userID] {
		select {
		case sub.ch <- ev:
		default:
			// Drop if the subscriber is slow; never block the emitter.
			log.Debugf("broadcast: dropping event for slow subscriber of %s", userID)
		}
	}
}

// Pending returns the user's queued/running snapshot entries, optionally
// filtered by vendor (case-insensitive), ordered oldest first.
func (b *Broadcaster) Pending(userID string, vendorFilter string) []*types.ProgressEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*types.ProgressEvent, 0)
	for _, ev := range b.pending[userID] {
		if ev.Status != types.TaskQueued && ev.Status != types.TaskRunning {
			continue
		}
		if vendorFilter != "" && !strings.EqualFold(ev.Vendor, vendorFilter) {
			continue
		}
		c := *ev
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// Subscribe registers a live consumer for one user's events. The filter key
// is the subscriber's own user id, so cross-user leakage is structurally
// impossible. Call Unsubscribe when done.
func (b *Broadcaster) Subscribe(userID string) *Subscriber {
	sub := &Subscriber{
		userID: userID,
		ch:     make(chan *types.ProgressEvent, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, exists := b.subs[userID]
	if !exists {
		m = make(map[*Subscriber]struct{})
		b.subs[userID] = m
	}
	m[sub] = struct{}{}
	return sub
}

func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m, exists := b.subs[sub.userID]; exists {
		delete(m, sub)
		if len(m) == 0 {
			delete(b.subs, sub.userID)
		}
	}
}

// Close releases the external publisher.
func (b *Broadcaster) Close() error {
	return b.publisher.Close()
}
