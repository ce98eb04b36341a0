package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mirageworks/genflow/broadcast"
	"github.com/mirageworks/genflow/dispatch"
	"github.com/mirageworks/genflow/server"
	"github.com/mirageworks/genflow/store/mem"
	"github.com/mirageworks/genflow/taskref"
	"github.com/mirageworks/genflow/types"
)

func newTestServer(t *testing.T, register func(*dispatch.Registry)) (http.Handler, *broadcast.Broadcaster) {
	t.Helper()

	reg := dispatch.NewRegistry()
	if register != nil {
		register(reg)
	}
	refs := taskref.New(mem.NewMemStore())
	d := dispatch.NewDispatcher(reg, refs)
	b := broadcast.New(nil)

	ts := server.NewTaskServer(d, b, server.StaticKeyResolver(map[string]string{
		"key-1": "u1",
		"key-2": "u2",
	}))
	return ts.Handler(), b
}

func doRequest(t *testing.T, h http.Handler, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		assert.Nil(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthNoAuth(t *testing.T) {
	h, _ := newTestServer(t, nil)
	rec := doRequest(t, h, http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestAuthRequired(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doRequest(t, h, http.MethodGet, "/v1/tasks/pending", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/v1/tasks/pending", "wrong-key", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/v1/tasks/pending", "key-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthBearerToken(t *testing.T) {
	h, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/pending", nil)
	req.Header.Set("Authorization", "Bearer key-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitTask(t *testing.T) {
	h, b := newTestServer(t, func(reg *dispatch.Registry) {
		reg.Register(dispatch.VendorGemini, dispatch.NewStaticAdapter(dispatch.VendorGemini))
	})

	rec := doRequest(t, h, http.MethodPost, "/v1/tasks", "key-1", map[string]any{
		"request": map[string]any{
			"kind":   "image",
			"prompt": "a lighthouse",
		},
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Vendor string            `json:"vendor"`
		Result *types.TaskResult `json:"result"`
	}
	assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, dispatch.VendorGemini, resp.Vendor)
	assert.Equal(t, types.TaskSucceeded, resp.Result.Status)
	assert.NotEmpty(t, resp.Result.Assets)

	// terminal result leaves no pending entry behind
	assert.Empty(t, b.Pending("u1", ""))
}

func TestSubmitTaskAsyncLeavesPendingEntry(t *testing.T) {
	h, b := newTestServer(t, func(reg *dispatch.Registry) {
		a := dispatch.NewStaticAdapter(dispatch.VendorKling)
		a.Async = true
		reg.Register(dispatch.VendorKling, a)
	})

	rec := doRequest(t, h, http.MethodPost, "/v1/tasks", "key-1", map[string]any{
		"vendor": "kling",
		"request": map[string]any{
			"kind":   "video",
			"prompt": "waves",
		},
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	pending := b.Pending("u1", "")
	assert.Len(t, pending, 1)
	assert.Equal(t, types.TaskQueued, pending[0].Status)

	// other users see nothing
	assert.Empty(t, b.Pending("u2", ""))
}

func TestSubmitTaskErrors(t *testing.T) {
	h, _ := newTestServer(t, nil)

	// no vendor registered at all
	rec := doRequest(t, h, http.MethodPost, "/v1/tasks", "key-1", map[string]any{
		"request": map[string]any{"kind": "image"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")

	// unsupported kind
	rec = doRequest(t, h, http.MethodPost, "/v1/tasks", "key-1", map[string]any{
		"request": map[string]any{"kind": "hologram"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported_task_kind")

	// missing kind
	rec = doRequest(t, h, http.MethodPost, "/v1/tasks", "key-1", map[string]any{
		"request": map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_request")

	// malformed body
	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", bytes.NewBufferString("{"))
	req.Header.Set("X-API-Key", "key-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doRequest(t, h, http.MethodPost, "/v1/tasks", "key-1", map[string]any{
		"request": map[string]any{"kind": "image"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	}
	assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Code)

	// details quotes the request id assigned at the auth boundary
	id, err := uuid.Parse(resp.Details)
	assert.Nil(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	// a second request gets a fresh id
	rec = doRequest(t, h, http.MethodPost, "/v1/tasks", "key-1", map[string]any{
		"request": map[string]any{"kind": "image"},
	})
	assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, id.String(), resp.Details)
}

func TestVendorFailureMapsToBadGateway(t *testing.T) {
	h, _ := newTestServer(t, func(reg *dispatch.Registry) {
		a := dispatch.NewStaticAdapter(dispatch.VendorGemini)
		a.Err = types.NewVendorErrorf(dispatch.VendorGemini, 500, "model overloaded")
		reg.Register(dispatch.VendorGemini, a)
	})

	rec := doRequest(t, h, http.MethodPost, "/v1/tasks", "key-1", map[string]any{
		"vendor":  "gemini",
		"request": map[string]any{"kind": "image"},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "vendor_failed")
}

func TestTaskResult(t *testing.T) {
	h, _ := newTestServer(t, func(reg *dispatch.Registry) {
		reg.Register(dispatch.VendorVeo, dispatch.NewStaticAdapter(dispatch.VendorVeo))
	})

	rec := doRequest(t, h, http.MethodPost, "/v1/tasks/result", "key-1", map[string]any{
		"taskId": "veo-123",
		"vendor": "veo",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Vendor string            `json:"vendor"`
		Result *types.TaskResult `json:"result"`
	}
	assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, dispatch.VendorVeo, resp.Vendor)
	assert.Equal(t, "veo-123", resp.Result.ID)

	// missing task id
	rec = doRequest(t, h, http.MethodPost, "/v1/tasks/result", "key-1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// auto vendor without a persisted ref
	rec = doRequest(t, h, http.MethodPost, "/v1/tasks/result", "key-1", map[string]any{
		"taskId": "ghost",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingEndpointVendorFilter(t *testing.T) {
	h, b := newTestServer(t, nil)

	b.EmitStoreOnly(context.Background(), "u1", &types.ProgressEvent{
		Vendor: "kling", TaskID: "t-1", Status: types.TaskQueued,
	})
	b.EmitStoreOnly(context.Background(), "u1", &types.ProgressEvent{
		Vendor: "veo", TaskID: "t-2", Status: types.TaskRunning,
	})

	rec := doRequest(t, h, http.MethodGet, "/v1/tasks/pending?vendor=kling", "key-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Pending []*types.ProgressEvent `json:"pending"`
	}
	assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Pending, 1)
	assert.Equal(t, "t-1", resp.Pending[0].TaskID)

	rec = doRequest(t, h, http.MethodGet, "/v1/tasks/pending", "key-1", nil)
	assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Pending, 2)
}
