package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"envmon/internal/kv/core"
)

func TestOpenRequiresAddr(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestStoreAgainstServer(t *testing.T) {
	addr := os.Getenv("ENVMON_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ENVMON_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := fmt.Sprintf("envmon-test-%d:", time.Now().UnixNano())
	s, err := Open(ctx, Config{Addr: addr, Prefix: prefix})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close() }()
	t.Cleanup(func() {
		keys, _ := s.Keys(ctx)
		for _, k := range keys {
			_ = s.Delete(ctx, k)
		}
	})

	if _, err := s.Load(ctx, "clients"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.SaveBatch(ctx, map[string][]byte{"clients": []byte(`[]`), "projects": []byte(`[]`)}); err != nil {
		t.Fatalf("save batch: %v", err)
	}
	got, err := s.Load(ctx, "clients")
	if err != nil || string(got) != "[]" {
		t.Fatalf("load: %s %v", got, err)
	}
	keys, err := s.Keys(ctx)
	if err != nil || len(keys) != 2 || keys[0] != "clients" || keys[1] != "projects" {
		t.Fatalf("keys: %v %v", keys, err)
	}
	if err := s.Delete(ctx, "clients"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	keys, _ = s.Keys(ctx)
	if len(keys) != 1 {
		t.Fatalf("expected index updated, got %v", keys)
	}
	if s.Driver() != core.DriverRedis || s.Prefix() != prefix {
		t.Fatalf("unexpected accessors")
	}
}
