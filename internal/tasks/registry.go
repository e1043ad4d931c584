// Package tasks tracks in-flight speech work so shutdown and pre-emption can
// cancel it with a bounded wait.
package tasks

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCancelWait bounds how long CancelAll waits for tasks to unwind.
const DefaultCancelWait = time.Second

// Task is the registry's view of one cancellable unit of work. The owner of
// the work runs it on its own goroutine, watches Cancelled, and calls
// Registry.Complete when it finishes.
type Task struct {
	ID        string
	StartedAt time.Time

	cancel     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
}

// Cancelled returns a channel that is closed when the task should unwind.
func (t *Task) Cancelled() <-chan struct{} { return t.cancel }

// Report summarizes a CancelAll run.
type Report struct {
	Cancelled []string // tasks that unwound within the timeout
	Abandoned []string // tasks detached after missing the timeout
}

// Registry is a thread-safe collection of live tasks. Mutation holds the lock
// only for bookkeeping; task bodies always run outside it.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: map[string]*Task{}}
}

// Register allocates a fresh task and returns it. Ids are never reused within
// a process lifetime.
func (r *Registry) Register() *Task {
	t := &Task{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		cancel:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	r.mu.Lock()
	r.tasks[t.ID] = t
	r.mu.Unlock()
	return t
}

// Complete marks the task finished and removes it from the registry. Safe to
// call for a task that was already abandoned.
func (r *Registry) Complete(id string) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if ok {
		delete(r.tasks, id)
	}
	r.mu.Unlock()
	if ok {
		close(t.done)
	}
}

// Len returns the number of live tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// CancelAll signals every live task to unwind, then waits up to timeout for
// them to complete against one shared deadline. Tasks missing the deadline
// are abandoned: dropped from the registry with their goroutine detached, so
// process exit never blocks on them. The registry is empty afterwards.
// Idempotent and safe with zero live tasks.
func (r *Registry) CancelAll(timeout time.Duration) Report {
	r.mu.Lock()
	live := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		live = append(live, t)
	}
	r.mu.Unlock()

	if len(live) == 0 {
		return Report{}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].StartedAt.Before(live[j].StartedAt) })

	for _, t := range live {
		t.cancelOnce.Do(func() { close(t.cancel) })
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var rep Report
	for _, t := range live {
		select {
		case <-t.done:
			rep.Cancelled = append(rep.Cancelled, t.ID)
		case <-deadline.C:
			rep.Abandoned = append(rep.Abandoned, t.ID)
			// Deadline passed; everything still running gets abandoned.
			for _, rest := range live[len(rep.Cancelled)+len(rep.Abandoned):] {
				select {
				case <-rest.done:
					rep.Cancelled = append(rep.Cancelled, rest.ID)
				default:
					rep.Abandoned = append(rep.Abandoned, rest.ID)
				}
			}
			r.drop(rep.Abandoned)
			return rep
		}
	}
	r.drop(rep.Abandoned)
	return rep
}

func (r *Registry) drop(ids []string) {
	if len(ids) == 0 {
		return
	}
	r.mu.Lock()
	for _, id := range ids {
		delete(r.tasks, id)
	}
	r.mu.Unlock()
}
