package genflow_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mirageworks/genflow"
	"github.com/mirageworks/genflow/dispatch"
	"github.com/mirageworks/genflow/types"
)

func newTestEngine(t *testing.T, vendors ...string) *genflow.Engine {
	t.Helper()

	engine, err := genflow.NewEngine(types.EnableMemStore())
	assert.Nil(t, err)
	t.Cleanup(func() { engine.Close() })

	for _, vendor := range vendors {
		assert.Nil(t, engine.Registry().Register(vendor, dispatch.NewStaticAdapter(vendor)))
	}
	return engine
}

func TestRunGraph(t *testing.T) {
	engine := newTestEngine(t, dispatch.VendorGemini, dispatch.VendorGPT, dispatch.VendorVeo)

	nodes := []*types.Node{
		{ID: "refine", Kind: types.KindPromptRefine, Prompt: "a lighthouse"},
		{ID: "shot", Kind: types.KindImage, Prompt: "wide shot"},
		{ID: "clip", Kind: types.KindVideo, Prompt: "animate"},
	}
	edges := []types.Edge{
		{Source: "refine", Target: "shot"},
		{Source: "shot", Target: "clip"},
	}

	statuses, err := engine.RunGraph(context.Background(), "u1", nodes, edges)
	assert.Nil(t, err)

	for _, n := range nodes {
		status, err := statuses.Status(n.ID)
		assert.Nil(t, err)
		assert.Equal(t, types.NodeSuccess, status, "node %s", n.ID)
	}

	// the synchronous static adapters finish everything, so no pending
	// entries remain for the owner
	assert.Empty(t, engine.Broadcaster().Pending("u1", ""))
}

func TestRunGraphFailurePropagates(t *testing.T) {
	engine := newTestEngine(t, dispatch.VendorGPT)

	// "shot" is pinned to an unregistered vendor, so it fails and blocks
	// its descendant while the upstream refine completes
	nodes := []*types.Node{
		{ID: "refine", Kind: types.KindPromptRefine, Prompt: "p"},
		{ID: "shot", Kind: types.KindImage, Prompt: "p",
			Extras: types.Data{genflow.ExtraVendor: dispatch.VendorFlux}},
		{ID: "clip", Kind: types.KindVideo, Prompt: "p"},
	}
	edges := []types.Edge{
		{Source: "refine", Target: "shot"},
		{Source: "shot", Target: "clip"},
	}

	statuses, err := engine.RunGraph(context.Background(), "u1", nodes, edges)
	assert.Nil(t, err)

	status, _ := statuses.Status("refine")
	assert.Equal(t, types.NodeSuccess, status)
	status, _ = statuses.Status("shot")
	assert.Equal(t, types.NodeError, status)
	status, _ = statuses.Status("clip")
	assert.Equal(t, types.NodeError, status)

	snap, err := statuses.Snapshot("clip")
	assert.Nil(t, err)
	assert.NotEmpty(t, snap.Logs)
	assert.Contains(t, snap.Logs[0].Line, "blocked by upstream failure")
}

func TestRunGraphCycle(t *testing.T) {
	engine := newTestEngine(t, dispatch.VendorGemini)

	nodes := []*types.Node{
		{ID: "a", Kind: types.KindImage, Prompt: "p"},
		{ID: "b", Kind: types.KindImage, Prompt: "p"},
	}
	edges := []types.Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "a"},
	}

	statuses, err := engine.RunGraph(context.Background(), "u1", nodes, edges)
	assert.True(t, types.IsCycleError(err))

	status, _ := statuses.Status("a")
	assert.Equal(t, types.NodeError, status)
	status, _ = statuses.Status("b")
	assert.Equal(t, types.NodeError, status)
}

func TestRunGraphScope(t *testing.T) {
	engine := newTestEngine(t, dispatch.VendorGemini)

	nodes := []*types.Node{
		{ID: "a", Kind: types.KindImage, Prompt: "p"},
		{ID: "b", Kind: types.KindImage, Prompt: "p"},
		{ID: "c", Kind: types.KindImage, Prompt: "p"},
	}
	edges := []types.Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
	}

	statuses, err := engine.RunGraph(context.Background(), "u1", nodes, edges,
		types.WithScope("b", "c"),
	)
	assert.Nil(t, err)

	// a was out of scope and never touched
	status, _ := statuses.Status("a")
	assert.Equal(t, types.NodeIdle, status)
	status, _ = statuses.Status("b")
	assert.Equal(t, types.NodeSuccess, status)
	status, _ = statuses.Status("c")
	assert.Equal(t, types.NodeSuccess, status)
}

func TestNewEngineHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a canceled setup context aborts the store connectivity check before
	// any dial happens
	_, err := genflow.NewEngine(
		types.WithContext(ctx),
		types.WithPostgresConfig(&types.PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "genflow",
			SSLMode:  "disable",
		}),
	)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestDispatchThroughEnginePersistsTaskRef(t *testing.T) {
	engine := newTestEngine(t, dispatch.VendorVeo)

	req := &types.TaskRequest{Kind: types.KindVideo, Prompt: "p"}
	_, res, err := engine.Dispatcher().Dispatch(context.Background(), "u1", dispatch.VendorVeo, req)
	assert.Nil(t, err)

	vendor, err := engine.TaskRefs().Lookup(context.Background(), "u1", types.RefKindVideo, res.ID)
	assert.Nil(t, err)
	assert.Equal(t, dispatch.VendorVeo, vendor)
}

func TestRenderDOT(t *testing.T) {
	nodes := []*types.Node{
		{ID: "a", Kind: types.KindImage},
		{ID: "b", Kind: types.KindImage},
	}
	edges := []types.Edge{{Source: "a", Target: "b"}}

	dot := genflow.RenderDOT(nodes, edges, nil)
	fmt.Println(dot)
	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "a -> b")
}
