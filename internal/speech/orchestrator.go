package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/koeppern/tts-read/internal/config"
	"github.com/koeppern/tts-read/internal/tasks"
)

// State is the orchestrator's playback state.
type State int

const (
	StateIdle State = iota
	StateSpeaking
	StatePaused
	StateResetting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	case StateResetting:
		return "resetting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// DefaultResetWait bounds how long a new speak request waits for the previous
// task to unwind before abandoning it.
const DefaultResetWait = 250 * time.Millisecond

// Orchestrator decides when a new speech request pre-empts an in-progress
// one. A new request always wins immediately; nothing is ever queued. All
// transitions are serialized under one mutex, so two tasks are never audible
// at once.
type Orchestrator struct {
	provider  Provider
	registry  *tasks.Registry
	resetWait time.Duration
	debug     bool

	mu      sync.Mutex
	state   State
	engine  Engine // engine of the current or last request
	current string // task id of the current request
}

// NewOrchestrator creates an orchestrator in the Idle state.
func NewOrchestrator(provider Provider, registry *tasks.Registry, debug bool) *Orchestrator {
	return &Orchestrator{
		provider:  provider,
		registry:  registry,
		resetWait: DefaultResetWait,
		debug:     debug,
		state:     StateIdle,
	}
}

// SetResetWait overrides how long a new request waits for the previous task
// to unwind before abandoning it. Non-positive values keep the current
// setting.
func (o *Orchestrator) SetResetWait(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d > 0 {
		o.resetWait = d
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Registry exposes the task registry, e.g. for shutdown reporting.
func (o *Orchestrator) Registry() *tasks.Registry { return o.registry }

// Speak interrupts whatever is in flight and speaks text with the action's
// voice and speed. Empty text is a no-op. The only fatal condition is an
// engine that cannot be constructed; a missing voice degrades to the current
// one.
func (o *Orchestrator) Speak(text string, ac config.ActionConfig) error {
	if strings.TrimSpace(text) == "" {
		if o.debug {
			fmt.Println("[speech] empty text, nothing to speak")
		}
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = StateResetting
	rep := o.registry.CancelAll(o.resetWait)
	if len(rep.Abandoned) > 0 {
		fmt.Printf("[speech] abandoned %d task(s) that missed the cancel deadline\n", len(rep.Abandoned))
	}
	if o.engine != nil {
		_ = o.engine.Stop()
	}

	eng, err := o.provider.Engine(ac.Engine)
	if err != nil {
		o.state = StateIdle
		o.current = ""
		return fmt.Errorf("engine %q: %w", ac.Engine, err)
	}
	o.engine = eng

	// Rate first: it is cheap and keeps the hotkey path snappy. The voice
	// lookup may scan the installed-voice list and may fail; neither is a
	// reason not to speak.
	if err := eng.SetRate(SAPIRate(ac.Speed)); err != nil {
		fmt.Printf("[speech] set rate failed: %v\n", err)
	}
	if ac.Voice != "" {
		if err := eng.SetVoice(ac.Voice); err != nil {
			if errors.Is(err, ErrVoiceNotFound) {
				fmt.Printf("[speech] voice %q not installed, keeping current voice\n", ac.Voice)
			} else {
				fmt.Printf("[speech] set voice failed: %v\n", err)
			}
		}
	}

	task := o.registry.Register()
	o.current = task.ID
	o.state = StateSpeaking
	if o.debug {
		fmt.Printf("[speech] speaking %d chars (action %s, task %s)\n", len(text), ac.ID, task.ID)
	}
	go o.runTask(task, eng, text)
	return nil
}

// runTask executes one speech task outside the orchestrator lock.
func (o *Orchestrator) runTask(task *tasks.Task, eng Engine, text string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-task.Cancelled():
			cancel()
		case <-ctx.Done():
		}
	}()

	err := eng.Speak(ctx, text)

	// Complete before taking the lock: a pre-empting Speak holds the lock
	// while it waits for this task's completion signal.
	o.registry.Complete(task.ID)

	o.mu.Lock()
	if o.current == task.ID {
		o.current = ""
		o.state = StateIdle
	}
	o.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Printf("[speech] playback failed: %v\n", err)
	}
}

// TogglePause flips Speaking<->Paused. In any other state it logs a warning
// and changes nothing.
func (o *Orchestrator) TogglePause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateSpeaking:
		if err := o.engine.Pause(); err != nil {
			fmt.Printf("[speech] pause failed: %v\n", err)
			return
		}
		o.state = StatePaused
		if o.debug {
			fmt.Println("[speech] paused")
		}
	case StatePaused:
		if err := o.engine.Resume(); err != nil {
			fmt.Printf("[speech] resume failed: %v\n", err)
			return
		}
		o.state = StateSpeaking
		if o.debug {
			fmt.Println("[speech] resumed")
		}
	default:
		fmt.Println("[speech] pause/resume ignored: nothing is playing")
	}
}

// Shutdown cancels all in-flight work with a bounded wait and stops the
// engine. Abandoned tasks are detached; process exit does not wait on them.
func (o *Orchestrator) Shutdown(timeout time.Duration) tasks.Report {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = StateResetting
	rep := o.registry.CancelAll(timeout)
	if o.engine != nil {
		_ = o.engine.Stop()
	}
	o.current = ""
	o.state = StateIdle
	return rep
}
