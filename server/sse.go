package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const keepaliveInterval = 15 * time.Second

// handleStream pushes the caller's progress events as server-sent events.
// There is no replay: a reconnecting client should hit the pending endpoint
// to catch up, then resume streaming.
func (s *TaskServer) handleStream(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.broadcaster.Subscribe(userID)
	defer s.broadcaster.Unsubscribe(sub)

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			// Comment lines keep proxies from closing the idle stream.
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		case ev := <-sub.Events():
			data, err := json.Marshal(ev)
			if err != nil {
				log.Warnf("server: marshal progress event for %s: %v", userID, err)
				continue
			}
			fmt.Fprintf(w, "event:progress\ndata:%s\n\n", data)
			flusher.Flush()
		}
	}
}
