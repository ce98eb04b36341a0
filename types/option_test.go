package types_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mirageworks/genflow/types"
)

func TestEngineOptions(t *testing.T) {
	opts := types.NewEngineOptions()
	assert.False(t, opts.MemStore)
	assert.Nil(t, opts.PostgresConfig)
	assert.Equal(t, "", opts.NATSURL)
	assert.NotNil(t, opts.Ctx)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pg := &types.PostgresConfig{Host: "db", Port: 5432}
	for _, opt := range []types.EngineOption{
		types.WithContext(ctx),
		types.EnableMemStore(),
		types.WithPostgresConfig(pg),
		types.WithNATSURL("nats://localhost:4222"),
	} {
		opt(opts)
	}

	assert.Equal(t, ctx, opts.Ctx)
	assert.True(t, opts.MemStore)
	assert.Equal(t, pg, opts.PostgresConfig)
	assert.Equal(t, "nats://localhost:4222", opts.NATSURL)
}

func TestRunOptions(t *testing.T) {
	opts := types.NewRunOptions()
	assert.Equal(t, 4, opts.Concurrency)
	assert.Empty(t, opts.Scope)

	types.SetConcurrency(2)(opts)
	types.WithScope("a", "b")(opts)

	assert.Equal(t, 2, opts.Concurrency)
	assert.Equal(t, []string{"a", "b"}, opts.Scope)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, types.NodeIdle.Terminal())
	assert.False(t, types.NodeQueued.Terminal())
	assert.False(t, types.NodeRunning.Terminal())
	assert.True(t, types.NodeSuccess.Terminal())
	assert.True(t, types.NodeError.Terminal())
	assert.True(t, types.NodeCanceled.Terminal())

	assert.False(t, types.TaskQueued.Terminal())
	assert.False(t, types.TaskRunning.Terminal())
	assert.True(t, types.TaskSucceeded.Terminal())
	assert.True(t, types.TaskFailed.Terminal())
}
