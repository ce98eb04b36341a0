// Package server exposes the task dispatch and progress surfaces over HTTP.
package server

import (
	"context"

	"github.com/juju/errors"

	"github.com/mirageworks/genflow/broadcast"
	"github.com/mirageworks/genflow/dispatch"
)

// KeyResolver maps an API key to the owning user id. Implementations return
// a NotFound error for unknown keys.
type KeyResolver func(ctx context.Context, apiKey string) (string, error)

// StaticKeyResolver resolves keys from a fixed key -> user map.
func StaticKeyResolver(keys map[string]string) KeyResolver {
	return func(ctx context.Context, apiKey string) (string, error) {
		if user, exists := keys[apiKey]; exists {
			return user, nil
		}
		return "", errors.NotFoundf("api key")
	}
}

// TaskServer wires the dispatcher and broadcaster behind the HTTP API.
type TaskServer struct {
	dispatcher  *dispatch.Dispatcher
	broadcaster *broadcast.Broadcaster
	resolve     KeyResolver
}

func NewTaskServer(d *dispatch.Dispatcher, b *broadcast.Broadcaster, resolve KeyResolver) *TaskServer {
	return &TaskServer{
		dispatcher:  d,
		broadcaster: b,
		resolve:     resolve,
	}
}
