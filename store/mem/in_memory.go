package mem

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mirageworks/genflow/store"
)

var (
	_ store.Store = &memStore{}
)

func NewMemStore() store.Store {
	return &memStore{
		buckets: make(map[string]map[string][]byte),
		// setup no error as default
		mockErrHandler: defaultNoErr,
	}
}

// NewMemStoreWithErrHandler injects a storage failure for tests.
func NewMemStoreWithErrHandler(errHandler func() error) store.Store {
	return &memStore{
		buckets:        make(map[string]map[string][]byte),
		mockErrHandler: errHandler,
	}
}

func defaultNoErr() error {
	return nil
}

/**
 * memStore is a pure in-memory Store for debug & testing.
 * NEVER use it in Production: nothing survives a restart.
 *
 * One bucket per prefix mirrors the (prefix, key) shape of the postgres
 * table, and List walks a bucket in key order the way the table's
 * ORDER BY does, so task ref listings behave the same on both stores.
 */
type memStore struct {
	mu sync.Mutex

	mockErrHandler func() error

	buckets map[string]map[string][]byte
}

func (m *memStore) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := "\n----------\n"
	for _, prefix := range m.sortedPrefixes() {
		for _, key := range sortedKeys(m.buckets[prefix]) {
			s += fmt.Sprintf("%s%s: %s\n", prefix, key, string(m.buckets[prefix][key]))
		}
	}
	s += "----------\n"
	return s
}

func (m *memStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.buckets[prefix][key], m.mockErrHandler()
}

func (m *memStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.buckets[prefix]
	if bucket == nil {
		bucket = make(map[string][]byte)
		m.buckets[prefix] = bucket
	}
	bucket[key] = value
	return m.mockErrHandler()
}

func (m *memStore) Remove(ctx context.Context, prefix, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets[prefix], key)
	if len(m.buckets[prefix]) == 0 {
		delete(m.buckets, prefix)
	}
	return m.mockErrHandler()
}

func (m *memStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	m.mu.Lock()
	keys := sortedKeys(m.buckets[prefix])
	m.mu.Unlock()

	for _, key := range keys {
		if !iterator(key) {
			break
		}
	}
	return m.mockErrHandler()
}

func (m *memStore) sortedPrefixes() []string {
	prefixes := make([]string, 0, len(m.buckets))
	for prefix := range m.buckets {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	return prefixes
}

func sortedKeys(bucket map[string][]byte) []string {
	keys := make([]string, 0, len(bucket))
	for key := range bucket {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
