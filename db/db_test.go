package db

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache", "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.Put(ctx, "abc", "hello world", "base"); err != nil {
		t.Fatalf("Failed to put transcript: %v", err)
	}

	text, ok, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Failed to get transcript: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if text != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", text)
	}
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.Put(ctx, "abc", "first", "base"); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "abc", "second", "base"); err != nil {
		t.Fatal(err)
	}

	text, _, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if text != "second" {
		t.Errorf("expected 'second', got '%s'", text)
	}
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Error("expected cache miss")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "abc", "kept", "base"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	text, ok, err := reopened.Get(ctx, "abc")
	if err != nil || !ok || text != "kept" {
		t.Errorf("expected 'kept' after reopen, got %q ok=%v err=%v", text, ok, err)
	}
}

func TestOpen_Error(t *testing.T) {
	if _, err := Open("/proc/vid-text/invalid/cache.db"); err == nil {
		t.Fatal("expected error, got nil")
	}
}
