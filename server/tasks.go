package server

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/mirageworks/genflow/dispatch"
	"github.com/mirageworks/genflow/types"
)

type submitTaskRequest struct {
	Vendor  string             `json:"vendor,omitempty"`
	Request *types.TaskRequest `json:"request"`
}

type taskResultRequest struct {
	TaskID   string         `json:"taskId"`
	Vendor   string         `json:"vendor,omitempty"`
	TaskKind types.TaskKind `json:"taskKind,omitempty"`
	Prompt   string         `json:"prompt,omitempty"`
}

type taskResponse struct {
	Vendor string            `json:"vendor"`
	Result *types.TaskResult `json:"result"`
}

func (s *TaskServer) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())

	var body submitTaskRequest
	if err := decodeBody(r, &body); err != nil {
		writeDispatchError(w, r, err)
		return
	}

	served, res, err := s.dispatcher.Dispatch(r.Context(), userID, body.Vendor, body.Request)
	if err != nil {
		log.WithField("request_id", requestFrom(r.Context())).
			Warnf("server: submit task for %s failed: %v", userID, err)
		writeDispatchError(w, r, err)
		return
	}

	s.emitProgress(r, userID, served, res)
	writeJSON(w, http.StatusOK, taskResponse{Vendor: served, Result: res})
}

func (s *TaskServer) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())

	var body taskResultRequest
	if err := decodeBody(r, &body); err != nil {
		writeDispatchError(w, r, err)
		return
	}

	req := &types.TaskRequest{Kind: body.TaskKind, Prompt: body.Prompt}
	served, res, err := s.dispatcher.Resolve(r.Context(), userID, body.TaskID, body.Vendor, req)
	if err != nil {
		log.WithField("request_id", requestFrom(r.Context())).
			Warnf("server: resolve task %s for %s failed: %v", body.TaskID, userID, err)
		writeDispatchError(w, r, err)
		return
	}

	s.emitProgress(r, userID, served, res)
	writeJSON(w, http.StatusOK, taskResponse{Vendor: served, Result: res})
}

func (s *TaskServer) handlePending(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())
	vendor := r.URL.Query().Get("vendor")

	events := s.broadcaster.Pending(userID, vendor)
	writeJSON(w, http.StatusOK, map[string]any{"pending": events})
}

// emitProgress mirrors a dispatch or poll outcome into the progress surface.
// Poll-only vendors have no push channel worth feeding, so their events are
// recorded in the snapshot without waking live subscribers.
func (s *TaskServer) emitProgress(r *http.Request, userID, served string, res *types.TaskResult) {
	progress := 0
	if res.Status == types.TaskSucceeded {
		progress = 100
	}
	ev := &types.ProgressEvent{
		Vendor:   served,
		TaskID:   res.ID,
		Status:   res.Status,
		Progress: progress,
		Error:    res.Error,
	}
	if dispatch.PollOnly(served) {
		s.broadcaster.EmitStoreOnly(r.Context(), userID, ev)
	} else {
		s.broadcaster.Emit(r.Context(), userID, ev)
	}
}
