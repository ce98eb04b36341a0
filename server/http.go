package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mirageworks/genflow/types"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"
)

// Handler returns the full API surface as a single http.Handler.
func (s *TaskServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("POST /v1/tasks", s.handleSubmitTask)
	mux.HandleFunc("POST /v1/tasks/result", s.handleTaskResult)
	mux.HandleFunc("GET /v1/tasks/pending", s.handlePending)
	mux.HandleFunc("GET /v1/tasks/stream", s.handleStream)

	return s.withAuth(mux)
}

// withAuth authenticates every request except the health probe. The key is
// taken from X-API-Key or an Authorization bearer token; the resolved user
// id is placed on the request context.
func (s *TaskServer) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), requestIDKey, uuid.NewString())

		if r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			auth := r.Header.Get("Authorization")
			if after, found := strings.CutPrefix(auth, "Bearer "); found {
				key = after
			}
		}
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing api key")
			return
		}

		userID, err := s.resolve(ctx, key)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}

		ctx = context.WithValue(ctx, userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *TaskServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func userFrom(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

func requestFrom(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warnf("server: encode response: %v", err)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// writeDispatchError maps the error taxonomy onto HTTP statuses. Vendor
// failures are upstream faults, so they surface as 502 rather than 500.
// The request id rides along in details so a caller can quote it against
// the server logs.
func writeDispatchError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error(), Details: requestFrom(r.Context())}
	status := http.StatusInternalServerError
	body.Code = "internal"

	switch {
	case errors.IsNotFound(err):
		status, body.Code = http.StatusNotFound, "not_found"
	case errors.IsNotSupported(err):
		status, body.Code = http.StatusBadRequest, "unsupported_task_kind"
	case errors.IsBadRequest(err):
		status, body.Code = http.StatusBadRequest, "bad_request"
	case types.IsVendorError(err):
		status, body.Code = http.StatusBadGateway, "vendor_failed"
	}
	writeJSON(w, status, body)
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.BadRequestf("invalid request body: %v", err)
	}
	return nil
}
