package singleton

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Mode selects how a live prior instance is handled during Acquire.
type Mode int

const (
	// ModeGraceful asks the prior instance to exit and waits a bounded
	// interval before escalating to a hard kill.
	ModeGraceful Mode = iota
	// ModeFastKill hard-kills the prior instance immediately.
	ModeFastKill
	// ModeSkipCleanup bypasses the prior-instance check entirely. The caller
	// accepts the risk of two running instances.
	ModeSkipCleanup
)

func (m Mode) String() string {
	switch m {
	case ModeGraceful:
		return "graceful"
	case ModeFastKill:
		return "fast-kill"
	case ModeSkipCleanup:
		return "skip-cleanup"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// DefaultGracefulWait bounds the cooperative-termination phase.
const DefaultGracefulWait = time.Second

// AcquireError reports that the instance lock could not be taken because the
// prior owner survived termination. It is fatal to startup.
type AcquireError struct {
	PID int
	Err error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("cannot acquire instance lock (prior owner pid %d): %v", e.PID, e.Err)
}

func (e *AcquireError) Unwrap() error { return e.Err }

// Supervisor enforces the single-instance guarantee. It owns the lock store
// lifecycle: nothing else reads or writes the lock file.
type Supervisor struct {
	store        *Store
	pid          int
	gracefulWait time.Duration
	debug        bool

	mu    sync.Mutex
	owned *Ownership

	// Process access, replaceable in tests.
	alive     func(pid int) bool
	terminate func(pid int, mode Mode, wait time.Duration) error
	scan      func(selfPID int) ([]int, error)
}

// New creates a supervisor over store for the current process.
func New(store *Store, debug bool) *Supervisor {
	return &Supervisor{
		store:        store,
		pid:          os.Getpid(),
		gracefulWait: DefaultGracefulWait,
		debug:        debug,
		alive:        pidAlive,
		terminate:    terminatePID,
		scan:         findSiblings,
	}
}

// SetGracefulWait overrides how long a prior instance gets to exit before
// the hard kill. Non-positive values keep the current setting.
func (s *Supervisor) SetGracefulWait(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.gracefulWait = d
	}
}

// Acquire takes the instance lock, terminating a live prior owner according
// to mode. It is idempotent: once this process owns the lock, further calls
// return the same ownership without re-running termination.
func (s *Supervisor) Acquire(mode Mode) (*Ownership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owned != nil {
		return s.owned, nil
	}

	if mode == ModeSkipCleanup {
		if s.debug {
			fmt.Println("[lock] skip-cleanup mode: not checking for a prior instance")
		}
	} else {
		if err := s.clearPriorOwner(mode); err != nil {
			return nil, err
		}
		if err := s.sweepSiblings(mode); err != nil {
			return nil, err
		}
	}

	info := LockInfo{PID: s.pid, AcquiredAt: time.Now()}
	if err := s.store.Write(info); err != nil {
		// Not an AcquireError: that type means a prior owner survived
		// termination, which is not what happened here.
		return nil, fmt.Errorf("write instance lock: %w", err)
	}
	if s.debug {
		fmt.Printf("[lock] acquired (pid %d, %s)\n", s.pid, s.store.Path())
	}
	s.owned = &Ownership{sup: s}
	return s.owned, nil
}

// clearPriorOwner handles the process recorded in the lock file.
func (s *Supervisor) clearPriorOwner(mode Mode) error {
	info, err := s.store.Read()
	if err != nil {
		// Missing or corrupt record: nothing to clear.
		return s.store.Remove()
	}
	if info.PID == s.pid {
		return nil
	}
	if !s.alive(info.PID) {
		if s.debug {
			fmt.Printf("[lock] stale lock (pid %d dead), removing\n", info.PID)
		}
		return s.store.Remove()
	}
	if s.debug {
		fmt.Printf("[lock] prior instance pid %d alive, terminating (%s)\n", info.PID, mode)
	}
	if err := s.terminate(info.PID, mode, s.gracefulWait); err != nil {
		return &AcquireError{PID: info.PID, Err: err}
	}
	return s.store.Remove()
}

// sweepSiblings terminates matching processes that are not covered by the
// lock record, e.g. instances started in skip-cleanup mode.
func (s *Supervisor) sweepSiblings(mode Mode) error {
	pids, err := s.scan(s.pid)
	if err != nil {
		// Enumeration failure is not fatal: the lock record was already
		// handled and it is the authoritative owner.
		if s.debug {
			fmt.Printf("[lock] process scan failed: %v\n", err)
		}
		return nil
	}
	for _, pid := range pids {
		if s.debug {
			fmt.Printf("[lock] terminating unlocked sibling pid %d (%s)\n", pid, mode)
		}
		if err := s.terminate(pid, mode, s.gracefulWait); err != nil {
			return &AcquireError{PID: pid, Err: err}
		}
	}
	return nil
}

// Ownership is the handle returned by a successful Acquire. Releasing it
// deletes the lock file.
type Ownership struct {
	sup      *Supervisor
	mu       sync.Mutex
	released bool
}

// Release deletes the lock if this process still owns it. Safe to call more
// than once.
func (o *Ownership) Release() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.released {
		return nil
	}
	o.released = true

	o.sup.mu.Lock()
	defer o.sup.mu.Unlock()
	o.sup.owned = nil

	info, err := o.sup.store.Read()
	if err == nil && info.PID != o.sup.pid {
		// Someone else took over; leave their lock alone.
		return nil
	}
	return o.sup.store.Remove()
}
