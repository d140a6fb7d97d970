// Package redis persists key/value payloads in a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"envmon/internal/kv/core"

	goredis "github.com/redis/go-redis/v9"
)

var (
	_ core.Backend = (*Store)(nil)
	_ core.Batcher = (*Store)(nil)
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "envmon:"

const indexSuffix = "__keys"

// Config holds connection parameters.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store keeps each payload as a Redis string and tracks keys in a set.
type Store struct {
	client *goredis.Client
	prefix string
	owned  bool
}

// Open connects to Redis and verifies the connection with a short ping.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr required")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s := New(rdb, cfg.Prefix)
	s.owned = true
	return s, nil
}

// New wraps an existing client. The caller keeps ownership of the client.
func New(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Client exposes the underlying client, e.g. for distributed locks.
func (s *Store) Client() *goredis.Client { return s.client }

// Prefix returns the key namespace.
func (s *Store) Prefix() string { return s.prefix }

// Driver returns the backend identifier.
func (s *Store) Driver() core.Driver { return core.DriverRedis }

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) indexKey() string { return s.prefix + indexSuffix }

// Load returns the payload stored under key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return b, nil
}

// Save stores a single key.
func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	return s.SaveBatch(ctx, map[string][]byte{key: payload})
}

// SaveBatch writes all payloads in one MULTI/EXEC block.
func (s *Store) SaveBatch(ctx context.Context, payloads map[string][]byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for k, p := range payloads {
			pipe.Set(ctx, s.key(k), p, 0)
			pipe.SAdd(ctx, s.indexKey(), k)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save batch: %w", err)
	}
	return nil
}

// Delete removes key and its index entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.key(key))
		pipe.SRem(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys in ascending order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close closes the client when the store opened it.
func (s *Store) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
