package mem

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestSetGetRemove(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	assert.Nil(t, s.Set(ctx, "/task_ref/", "u1|video|t-1", []byte("veo")))

	value, err := s.Get(ctx, "/task_ref/", "u1|video|t-1")
	assert.Nil(t, err)
	assert.Equal(t, []byte("veo"), value)

	// a missing key reads as nil, same as the postgres store
	value, err = s.Get(ctx, "/task_ref/", "ghost")
	assert.Nil(t, err)
	assert.Nil(t, value)

	assert.Nil(t, s.Remove(ctx, "/task_ref/", "u1|video|t-1"))
	value, err = s.Get(ctx, "/task_ref/", "u1|video|t-1")
	assert.Nil(t, err)
	assert.Nil(t, value)
}

func TestPrefixesAreIsolated(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	assert.Nil(t, s.Set(ctx, "/task_ref/", "k", []byte("a")))
	assert.Nil(t, s.Set(ctx, "/other/", "k", []byte("b")))

	value, err := s.Get(ctx, "/task_ref/", "k")
	assert.Nil(t, err)
	assert.Equal(t, []byte("a"), value)

	keys := []string{}
	assert.Nil(t, s.List(ctx, "/other/", func(key string) bool {
		keys = append(keys, key)
		return true
	}))
	assert.Equal(t, []string{"k"}, keys)
}

func TestListIsSortedByKey(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	assert.Nil(t, s.Set(ctx, "/task_ref/", "u1|video|t-2", []byte("x")))
	assert.Nil(t, s.Set(ctx, "/task_ref/", "u1|video|t-1", []byte("x")))
	assert.Nil(t, s.Set(ctx, "/task_ref/", "u1|image|i-1", []byte("x")))

	keys := []string{}
	assert.Nil(t, s.List(ctx, "/task_ref/", func(key string) bool {
		keys = append(keys, key)
		return true
	}))
	assert.Equal(t, []string{"u1|image|i-1", "u1|video|t-1", "u1|video|t-2"}, keys)
}

func TestListStopsWhenIteratorReturnsFalse(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	assert.Nil(t, s.Set(ctx, "/task_ref/", "a", []byte("x")))
	assert.Nil(t, s.Set(ctx, "/task_ref/", "b", []byte("x")))

	count := 0
	assert.Nil(t, s.List(ctx, "/task_ref/", func(key string) bool {
		count++
		return false
	}))
	assert.Equal(t, 1, count)
}

func TestErrHandlerPropagates(t *testing.T) {
	s := NewMemStoreWithErrHandler(func() error {
		return errors.New("disk on fire")
	})
	ctx := context.Background()

	assert.NotNil(t, s.Set(ctx, "/task_ref/", "k", []byte("x")))
	_, err := s.Get(ctx, "/task_ref/", "k")
	assert.NotNil(t, err)
}
