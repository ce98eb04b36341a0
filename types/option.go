package types

import (
	"context"

	"github.com/mcuadros/go-defaults"
)

func NewEngineOptions() *EngineOptions {
	opts := &EngineOptions{Ctx: context.Background()}
	defaults.SetDefaults(opts)
	return opts
}

type EngineOptions struct {
	Ctx context.Context
	/**
	 * default: false, only set it to true when doing testing or developing.
	 */
	MemStore bool `default:"false"`

	// PostgreSQL store configuration.
	// If both MemStore and PostgresConfig are set, PostgresConfig takes precedence.
	PostgresConfig *PostgresConfig

	// NATSURL enables mirroring progress events to NATS when non-empty.
	NATSURL string
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

type EngineOption func(*EngineOptions)

// WithContext bounds engine setup work, such as the initial database
// connectivity check.
func WithContext(ctx context.Context) EngineOption {
	return func(opts *EngineOptions) {
		opts.Ctx = ctx
	}
}

func EnableMemStore() EngineOption {
	return func(opts *EngineOptions) {
		opts.MemStore = true
	}
}

// WithPostgresConfig configures the engine to use the PostgreSQL store
func WithPostgresConfig(config *PostgresConfig) EngineOption {
	return func(opts *EngineOptions) {
		opts.PostgresConfig = config
	}
}

func WithNATSURL(url string) EngineOption {
	return func(opts *EngineOptions) {
		opts.NATSURL = url
	}
}

func NewRunOptions() *RunOptions {
	opts := &RunOptions{}
	defaults.SetDefaults(opts)
	return opts
}

type RunOptions struct {
	/**
	 * default: 4, clamped to [1, 8].
	 * Upper bound on nodes executing at the same time within one run.
	 */
	Concurrency int `default:"4"`
	/**
	 * Scope restricts the run to a subset of node ids; empty means the
	 * whole graph. Edges touching out-of-scope nodes are ignored.
	 */
	Scope []string
}

type RunOption func(*RunOptions)

func SetConcurrency(concurrency int) RunOption {
	return func(opts *RunOptions) {
		opts.Concurrency = concurrency
	}
}

func WithScope(ids ...string) RunOption {
	return func(opts *RunOptions) {
		opts.Scope = ids
	}
}
