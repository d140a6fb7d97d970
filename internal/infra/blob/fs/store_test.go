package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"envmon/internal/blob/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return s
}

func TestSanitizeKeyRejectsEscapes(t *testing.T) {
	for _, key := range []string{"", "../escape", "/abs", "a/../b", "x.docx.meta"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestPutGetReplace(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	key := "documents/味全_松山廠區_監測計畫書_20250320.docx"
	first, err := s.Put(ctx, key, strings.NewReader("one"), core.PutOptions{Metadata: map[string]string{"project": "YOC114-001"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if first.ContentType == "" {
		t.Fatalf("expected content type derived from extension")
	}
	second, err := s.Put(ctx, key, strings.NewReader("two!"), core.PutOptions{ContentType: "application/octet-stream"})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if second.Size != 4 || second.ETag == first.ETag {
		t.Fatalf("unexpected replace info %+v", second)
	}
	info, rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "two!" || info.ContentType != "application/octet-stream" {
		t.Fatalf("unexpected blob %q %+v", body, info)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "documents")); err != nil {
		t.Fatalf("expected nested directory: %v", err)
	}
}

func TestMissingAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, _, err := s.Get(ctx, "templates/none.docx"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(ctx, "templates/none.docx"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Put(ctx, "templates/plan.docx", bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err := s.Delete(ctx, "templates/plan.docx")
	if err != nil || !ok {
		t.Fatalf("expected delete true, got %v %v", ok, err)
	}
	ok, err = s.Delete(ctx, "templates/plan.docx")
	if err != nil || ok {
		t.Fatalf("expected second delete false, got %v %v", ok, err)
	}
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, key := range []string{"templates/b.docx", "templates/a.docx", "reports/r.xlsx"} {
		if _, err := s.Put(ctx, key, strings.NewReader(key), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "templates/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "templates/a.docx" || infos[1].Key != "templates/b.docx" {
		t.Fatalf("unexpected list %+v", infos)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 blobs, got %d", len(all))
	}
}

func TestListReportsCorruptSidecar(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.Put(ctx, "k.bin", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(s.Root(), "k.bin.meta"), []byte("{"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := s.List(ctx, ""); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPresignURL(t *testing.T) {
	s := newStore(t)
	u, err := s.PresignURL(context.Background(), "documents/a.docx", core.SignedURLOptions{})
	if err != nil || !strings.HasPrefix(u, "file://") {
		t.Fatalf("unexpected url %q %v", u, err)
	}
	if _, err := s.PresignURL(context.Background(), "documents/a.docx", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}
