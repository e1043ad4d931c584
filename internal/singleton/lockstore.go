package singleton

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoLock is returned by Store.Read when no usable lock record exists.
// A corrupt lock file reads as no lock: a record we cannot trust is stale.
var ErrNoLock = errors.New("no lock record")

// LockInfo is the durable record of the process that owns the instance lock.
type LockInfo struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Store persists the instance lock as a JSON file at a well-known path.
type Store struct {
	path string
}

// NewStore creates a store for the lock file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultLockPath returns the per-machine lock file location.
func DefaultLockPath() string {
	return filepath.Join(os.TempDir(), "tts-read.lock")
}

// Path returns the lock file path.
func (s *Store) Path() string { return s.path }

// Read returns the recorded lock, or ErrNoLock if the file is missing,
// unreadable, or does not contain a valid record.
func (s *Store) Read() (LockInfo, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return LockInfo{}, ErrNoLock
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil || info.PID <= 0 {
		return LockInfo{}, ErrNoLock
	}
	return info, nil
}

// Write persists info atomically: the record is written to a temp file in the
// same directory and renamed into place, so a concurrent launch never sees a
// partial write.
func (s *Store) Write(info LockInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write lock: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write lock: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write lock: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write lock: %w", err)
	}
	return nil
}

// Remove deletes the lock file. Missing file is not an error.
func (s *Store) Remove() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
