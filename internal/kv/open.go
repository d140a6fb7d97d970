package kv

import (
	"context"
	"fmt"

	"envmon/internal/infra/kv/memory"
	"envmon/internal/infra/kv/postgres"
	"envmon/internal/infra/kv/redis"
	"envmon/internal/infra/kv/sqlite"
	"envmon/internal/kv/core"
)

// Config selects and parameterizes a backend.
type Config struct {
	Driver      core.Driver
	SQLitePath  string
	PostgresDSN string
	Redis       redis.Config
	MemoryQuota int
}

// OpenBackend constructs the backend named by cfg.Driver. An empty driver
// selects sqlite.
func OpenBackend(ctx context.Context, cfg Config) (core.Backend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = core.DriverSQLite
	}
	switch driver {
	case core.DriverMemory:
		return memory.New(memory.WithQuota(cfg.MemoryQuota)), nil
	case core.DriverSQLite:
		return sqlite.New(cfg.SQLitePath)
	case core.DriverPostgres:
		return postgres.New(ctx, cfg.PostgresDSN)
	case core.DriverRedis:
		return redis.Open(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// Open constructs the backend and wraps it in a Store.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(backend, opts...), nil
}
