package server_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mirageworks/genflow/types"
)

func TestStreamDeliversProgressEvents(t *testing.T) {
	h, b := newTestServer(t, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/tasks/stream", nil)
	assert.Nil(t, err)
	req.Header.Set("X-API-Key", "key-1")

	resp, err := http.DefaultClient.Do(req)
	assert.Nil(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				lines <- line
			}
		}
		close(lines)
	}()

	// give the handler a moment to subscribe before emitting
	time.Sleep(50 * time.Millisecond)
	b.Emit(context.Background(), "u1", &types.ProgressEvent{
		Vendor: "veo",
		NodeID: "n1",
		TaskID: "t-1",
		Status: types.TaskRunning,
	})

	var event, data string
	deadline := time.After(2 * time.Second)
	for event == "" || data == "" {
		select {
		case line := <-lines:
			if strings.HasPrefix(line, "event:") {
				event = line
			}
			if strings.HasPrefix(line, "data:") {
				data = line
			}
		case <-deadline:
			t.Fatal("no event received on the stream")
		}
	}

	assert.Equal(t, "event:progress", event)
	assert.Contains(t, data, `"task_id":"t-1"`)
	assert.Contains(t, data, `"status":"running"`)
}
