// Package config loads daemon configuration from the environment.
package config

import (
	"os"
	"strings"

	"github.com/juju/errors"
)

// Config is everything genflowd needs to start.
type Config struct {
	// HTTPAddr is the listen address for the API server.
	HTTPAddr string
	// DatabaseDSN is a key=value postgres connection string. Empty selects
	// the in-memory store.
	DatabaseDSN string
	// NATSURL enables progress mirroring when set.
	NATSURL string
	// APIKeys maps api key -> user id.
	APIKeys map[string]string
}

// Load reads configuration from GENFLOW_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    getEnv("GENFLOW_HTTP_ADDR", ":8080"),
		DatabaseDSN: os.Getenv("GENFLOW_DATABASE_DSN"),
		NATSURL:     os.Getenv("GENFLOW_NATS_URL"),
	}

	keys, err := ParseAPIKeys(os.Getenv("GENFLOW_API_KEYS"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	cfg.APIKeys = keys

	return cfg, nil
}

// ParseAPIKeys parses "key1:user1,key2:user2" into a key -> user map.
func ParseAPIKeys(raw string) (map[string]string, error) {
	keys := make(map[string]string)
	if raw == "" {
		return keys, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, user, found := strings.Cut(pair, ":")
		if !found || key == "" || user == "" {
			return nil, errors.BadRequestf("invalid api key entry %q, want key:user", pair)
		}
		keys[key] = user
	}
	return keys, nil
}

func getEnv(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}
