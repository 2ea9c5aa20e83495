package session

import (
	"errors"
	"path/filepath"
	"testing"

	"pantrack/internal/testutil/testlog"
)

func TestFileStoreLifecycle(t *testing.T) {
	testlog.Start(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "state", "session"))

	if key, ok, err := store.Get(); ok || err != nil {
		t.Fatalf("fresh store should be absent, got %q err=%v", key, err)
	}

	if err := store.Set("S-abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	key, ok, err := store.Get()
	if err != nil || !ok || key != "S-abc" {
		t.Fatalf("expected S-abc, got %q ok=%v err=%v", key, ok, err)
	}

	if err := store.Set("S-def"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if key, _, _ := store.Get(); key != "S-def" {
		t.Fatalf("expected overwritten key, got %q", key)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Get(); ok {
		t.Fatalf("cleared store should be absent")
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clearing an absent store should succeed: %v", err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "session")
	if err := NewFileStore(path).Set("S-run-7"); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A new store over the same path models a process restart mid-run.
	reopened := NewFileStore(path)
	key, ok, err := reopened.Get()
	if err != nil || !ok || key != "S-run-7" {
		t.Fatalf("expected persisted key, got %q ok=%v err=%v", key, ok, err)
	}
}

func TestFileStoreRejectsEmptyKey(t *testing.T) {
	testlog.Start(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "session"))
	if err := store.Set("   "); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestFileStoreGetSurfacesReadErrors(t *testing.T) {
	testlog.Start(t)
	// A directory at the state path is unreadable as a file; that must be an
	// error, not a silently absent key.
	store := NewFileStore(t.TempDir())
	if _, ok, err := store.Get(); err == nil || ok {
		t.Fatalf("expected read error, got ok=%v err=%v", ok, err)
	}
}

func TestMemStoreLifecycle(t *testing.T) {
	testlog.Start(t)
	store := NewMemStore()
	if _, ok, _ := store.Get(); ok {
		t.Fatalf("fresh mem store should be absent")
	}
	if err := store.Set("S-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if key, ok, err := store.Get(); err != nil || !ok || key != "S-1" {
		t.Fatalf("expected S-1, got %q ok=%v err=%v", key, ok, err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Get(); ok {
		t.Fatalf("cleared mem store should be absent")
	}
}
