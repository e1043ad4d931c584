package singleton

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "test.lock"))

	want := LockInfo{PID: 1234, AcquiredAt: time.Now().Truncate(time.Second)}
	if err := store.Write(want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := store.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.PID != want.PID {
		t.Fatalf("pid = %d, want %d", got.PID, want.PID)
	}
	if !got.AcquiredAt.Equal(want.AcquiredAt) {
		t.Fatalf("acquired_at = %v, want %v", got.AcquiredAt, want.AcquiredAt)
	}
}

func TestStoreReadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "test.lock"))
	if _, err := store.Read(); !errors.Is(err, ErrNoLock) {
		t.Fatalf("expected ErrNoLock, got %v", err)
	}
}

func TestStoreReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	for _, payload := range []string{"garbage", `{"pid": 0}`, `{"pid": -1}`, ""} {
		if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		store := NewStore(path)
		if _, err := store.Read(); !errors.Is(err, ErrNoLock) {
			t.Fatalf("payload %q: expected ErrNoLock, got %v", payload, err)
		}
	}
}

func TestStoreWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "test.lock"))
	if err := store.Write(LockInfo{PID: 1, AcquiredAt: time.Now()}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestStoreRemoveMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "test.lock"))
	if err := store.Remove(); err != nil {
		t.Fatalf("Remove of missing lock failed: %v", err)
	}
}
