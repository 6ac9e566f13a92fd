package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if rec, _ := store.Get(ctx, "missing"); rec != nil {
		t.Fatalf("expected nil for missing key")
	}

	record := Record{
		Value:     []byte("ok"),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
	}
	if err := store.Save(ctx, "abc", record); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, _ := store.Get(ctx, "abc")
	if got == nil || string(got.Value) != "ok" {
		t.Fatalf("unexpected record: %+v", got)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if rec, _ := store.Get(ctx, "abc"); rec != nil {
		t.Fatalf("expected nil after delete, got %+v", rec)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Save(ctx, "old", Record{
		Value:     []byte("stale"),
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	if rec, _ := store.Get(ctx, "old"); rec != nil {
		t.Fatalf("expected expired record to be hidden, got %+v", rec)
	}

	_ = store.Save(ctx, "forever", Record{Value: []byte("x"), CreatedAt: time.Now()})
	if rec, _ := store.Get(ctx, "forever"); rec == nil {
		t.Fatalf("record without expiry should not expire")
	}
}

func TestFileStorePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "records.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	ctx := context.Background()
	record := Record{
		Value:     []byte("resp"),
		CreatedAt: time.Unix(0, 0),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.Save(ctx, "key", record); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	store2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}

	got, _ := store2.Get(ctx, "key")
	if got == nil || string(got.Value) != "resp" {
		t.Fatalf("unexpected record: %+v", got)
	}

	if err := store2.Delete(ctx, "key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	store3, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	if rec, _ := store3.Get(ctx, "key"); rec != nil {
		t.Fatalf("expected delete to be persisted, got %+v", rec)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, Options{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}
	_ = closeFn()

	s, _, err = Open(ctx, Options{Backend: BackendFile, FilePath: filepath.Join(t.TempDir(), "s.json")})
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("expected file store, got %T", s)
	}

	if _, _, err := Open(ctx, Options{Backend: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
