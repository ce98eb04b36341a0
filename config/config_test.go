package config_test

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"github.com/mirageworks/genflow/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GENFLOW_HTTP_ADDR", "")
	t.Setenv("GENFLOW_DATABASE_DSN", "")
	t.Setenv("GENFLOW_NATS_URL", "")
	t.Setenv("GENFLOW_API_KEYS", "")

	cfg, err := config.Load()
	assert.Nil(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "", cfg.DatabaseDSN)
	assert.Equal(t, "", cfg.NATSURL)
	assert.Empty(t, cfg.APIKeys)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GENFLOW_HTTP_ADDR", ":9000")
	t.Setenv("GENFLOW_DATABASE_DSN", "host=db port=5432 user=app dbname=flows")
	t.Setenv("GENFLOW_NATS_URL", "nats://localhost:4222")
	t.Setenv("GENFLOW_API_KEYS", "k1:alice, k2:bob")

	cfg, err := config.Load()
	assert.Nil(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "host=db port=5432 user=app dbname=flows", cfg.DatabaseDSN)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, map[string]string{"k1": "alice", "k2": "bob"}, cfg.APIKeys)
}

func TestParseAPIKeys(t *testing.T) {
	keys, err := config.ParseAPIKeys("k1:u1,k2:u2")
	assert.Nil(t, err)
	assert.Equal(t, map[string]string{"k1": "u1", "k2": "u2"}, keys)

	keys, err = config.ParseAPIKeys("")
	assert.Nil(t, err)
	assert.Empty(t, keys)

	// trailing comma is tolerated
	keys, err = config.ParseAPIKeys("k1:u1,")
	assert.Nil(t, err)
	assert.Len(t, keys, 1)

	_, err = config.ParseAPIKeys("no-user-part")
	assert.True(t, errors.IsBadRequest(err))
	_, err = config.ParseAPIKeys(":u1")
	assert.True(t, errors.IsBadRequest(err))
	_, err = config.ParseAPIKeys("k1:")
	assert.True(t, errors.IsBadRequest(err))
}
