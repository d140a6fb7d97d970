// Package core defines the contract implemented by key/value storage backends
// used by the persistence adapter.
package core

import (
	"context"
	"errors"
)

// Driver identifies a concrete key/value backend implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverRedis    Driver = "redis"    // Redis server
)

// Backend stores opaque JSON payloads under string keys.
type Backend interface {
	// Load returns the payload stored under key or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save creates or replaces the payload stored under key.
	Save(ctx context.Context, key string, payload []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists stored keys in ascending order.
	Keys(ctx context.Context) ([]string, error)
	Close() error
	Driver() Driver
}

// Batcher is implemented by backends able to write several keys atomically.
type Batcher interface {
	SaveBatch(ctx context.Context, payloads map[string][]byte) error
}

var (
	// ErrNotFound is returned by Load when the key is absent.
	ErrNotFound = errors.New("kv: key not found")
	// ErrQuotaExceeded is returned when a write would exceed the backend quota.
	ErrQuotaExceeded = errors.New("kv: quota exceeded")
)
