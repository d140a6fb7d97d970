// Package memory implements an in-memory key/value backend for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"envmon/internal/kv/core"
)

var (
	_ core.Backend = (*Store)(nil)
	_ core.Batcher = (*Store)(nil)
)

// Store keeps payloads in process memory. An optional quota caps the total
// number of stored bytes, mirroring browser storage limits.
type Store struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int
	used  int
}

// Option configures a Store.
type Option func(*Store)

// WithQuota limits the total payload bytes the store accepts. Zero disables the limit.
func WithQuota(bytes int) Option {
	return func(s *Store) { s.quota = bytes }
}

// New returns an empty in-memory backend.
func New(opts ...Option) *Store {
	s := &Store{data: make(map[string][]byte)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Driver returns the backend identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Load returns a copy of the payload stored under key.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneBytes(b), nil
}

// Save stores payload under key, enforcing the quota.
func (s *Store) Save(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(map[string][]byte{key: payload})
}

// SaveBatch stores all payloads or none of them.
func (s *Store) SaveBatch(_ context.Context, payloads map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(payloads)
}

func (s *Store) saveLocked(payloads map[string][]byte) error {
	used := s.used
	for k, p := range payloads {
		used += len(p) - len(s.data[k])
	}
	if s.quota > 0 && used > s.quota {
		return core.ErrQuotaExceeded
	}
	for k, p := range payloads {
		s.data[k] = cloneBytes(p)
	}
	s.used = used
	return nil
}

// Delete removes key if present.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.data[key]; ok {
		s.used -= len(b)
		delete(s.data, key)
	}
	return nil
}

// Keys lists stored keys in ascending order.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
