package speech

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/koeppern/tts-read/internal/config"
	"github.com/koeppern/tts-read/internal/tasks"
)

// fakeEngine records calls and can block playback until cancelled.
type fakeEngine struct {
	mu      sync.Mutex
	events  []string
	rates   []int
	voices  []string
	block   bool
	voiceOK bool
}

func newFakeEngine(block bool) *fakeEngine {
	return &fakeEngine{block: block, voiceOK: true}
}

func (f *fakeEngine) record(ev string) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *fakeEngine) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeEngine) Speak(ctx context.Context, text string) error {
	f.record("speak:" + text)
	if f.block {
		<-ctx.Done()
		f.record("cancel:" + text)
		return ctx.Err()
	}
	return nil
}

func (f *fakeEngine) Pause() error  { f.record("pause"); return nil }
func (f *fakeEngine) Resume() error { f.record("resume"); return nil }
func (f *fakeEngine) Stop() error   { f.record("stop"); return nil }

func (f *fakeEngine) SetRate(rate int) error {
	f.mu.Lock()
	f.rates = append(f.rates, rate)
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) SetVoice(name string) error {
	f.mu.Lock()
	f.voices = append(f.voices, name)
	f.mu.Unlock()
	if !f.voiceOK {
		return fmt.Errorf("%w: %q", ErrVoiceNotFound, name)
	}
	return nil
}

func (f *fakeEngine) Voices() ([]string, error) { return nil, nil }
func (f *fakeEngine) Close() error              { return nil }

type fakeProvider struct {
	engine Engine
	err    error
}

func (p *fakeProvider) Engine(kind string) (Engine, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.engine, nil
}

func newTestOrchestrator(eng Engine) *Orchestrator {
	o := NewOrchestrator(&fakeProvider{engine: eng}, tasks.NewRegistry(), false)
	o.resetWait = 500 * time.Millisecond
	return o
}

func waitForState(t *testing.T, o *Orchestrator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", o.State(), want)
}

func action(voice string, speed float64) config.ActionConfig {
	return config.ActionConfig{ID: "action_0", Name: "Test", Engine: EngineSAPI, Voice: voice, Speed: speed, Enabled: true}
}

func TestSAPIRate(t *testing.T) {
	cases := []struct {
		speed float64
		want  int
	}{
		{1.0, 0},
		{1.2, 2},
		{0.9, -1},
		{0.5, -5},
		{2.0, 10},
		{3.0, 10},
		{0.0, -10},
	}
	for _, c := range cases {
		if got := SAPIRate(c.speed); got != c.want {
			t.Fatalf("SAPIRate(%v) = %d, want %d", c.speed, got, c.want)
		}
	}
}

func TestSpeakTransitionsToSpeaking(t *testing.T) {
	eng := newFakeEngine(true)
	o := newTestOrchestrator(eng)

	if err := o.Speak("hello", action("Voice A", 1.2)); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if o.State() != StateSpeaking {
		t.Fatalf("state = %v, want speaking", o.State())
	}
	if len(eng.rates) != 1 || eng.rates[0] != 2 {
		t.Fatalf("rates = %v, want [2]", eng.rates)
	}
	if len(eng.voices) != 1 || eng.voices[0] != "Voice A" {
		t.Fatalf("voices = %v, want [Voice A]", eng.voices)
	}

	o.Shutdown(time.Second)
}

func TestNaturalCompletionReturnsToIdle(t *testing.T) {
	eng := newFakeEngine(false) // completes immediately
	o := newTestOrchestrator(eng)

	if err := o.Speak("hello", action("", 1.0)); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	waitForState(t, o, StateIdle)
	if o.Registry().Len() != 0 {
		t.Fatalf("task not deregistered on natural completion")
	}
}

func TestLastWriterWins(t *testing.T) {
	eng := newFakeEngine(true)
	o := newTestOrchestrator(eng)

	if err := o.Speak("first", action("", 1.0)); err != nil {
		t.Fatalf("first Speak failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := o.Speak("second", action("", 1.0)); err != nil {
		t.Fatalf("second Speak failed: %v", err)
	}

	// Wait for the second task's goroutine to reach the engine.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		found := false
		for _, ev := range eng.Events() {
			if ev == "speak:second" {
				found = true
			}
		}
		if found {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The first task's cancel must be observed before the second starts.
	events := eng.Events()
	var idxCancelFirst, idxSpeakSecond = -1, -1
	for i, ev := range events {
		switch ev {
		case "cancel:first":
			idxCancelFirst = i
		case "speak:second":
			idxSpeakSecond = i
		}
	}
	if idxCancelFirst == -1 || idxSpeakSecond == -1 {
		t.Fatalf("missing events: %v", events)
	}
	if idxCancelFirst > idxSpeakSecond {
		t.Fatalf("second speak started before first was cancelled: %v", events)
	}
	if o.Registry().Len() != 1 {
		t.Fatalf("expected exactly one live task, got %d", o.Registry().Len())
	}

	o.Shutdown(time.Second)
}

// stuckEngine ignores cancellation entirely until release is closed.
type stuckEngine struct {
	fakeEngine
	release chan struct{}
}

func (s *stuckEngine) Speak(ctx context.Context, text string) error {
	s.record("speak:" + text)
	<-s.release
	return nil
}

func TestSetResetWaitBoundsPreemption(t *testing.T) {
	eng := &stuckEngine{release: make(chan struct{})}
	eng.voiceOK = true
	o := newTestOrchestrator(eng)
	o.SetResetWait(50 * time.Millisecond)

	if err := o.Speak("first", action("", 1.0)); err != nil {
		t.Fatalf("first Speak failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	if err := o.Speak("second", action("", 1.0)); err != nil {
		t.Fatalf("second Speak failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("pre-emption took %v with a 50ms unwind budget", elapsed)
	}
	if o.Registry().Len() != 1 {
		t.Fatalf("abandoned task still registered, len = %d", o.Registry().Len())
	}

	// Non-positive values keep the current setting.
	o.SetResetWait(0)
	if o.resetWait != 50*time.Millisecond {
		t.Fatalf("resetWait = %v, want 50ms", o.resetWait)
	}

	close(eng.release)
	waitForState(t, o, StateIdle)
}

func TestEmptyTextIsNoOp(t *testing.T) {
	eng := newFakeEngine(true)
	o := newTestOrchestrator(eng)

	if err := o.Speak("   ", action("", 1.0)); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if o.State() != StateIdle {
		t.Fatalf("state = %v, want idle", o.State())
	}
	if len(eng.Events()) != 0 {
		t.Fatalf("engine should not be touched: %v", eng.Events())
	}
}

func TestEngineConstructionFailureRevertsToIdle(t *testing.T) {
	o := NewOrchestrator(&fakeProvider{err: fmt.Errorf("no such engine")}, tasks.NewRegistry(), false)

	err := o.Speak("hello", action("", 1.0))
	if err == nil {
		t.Fatalf("expected error")
	}
	if o.State() != StateIdle {
		t.Fatalf("state = %v, want idle", o.State())
	}
}

func TestVoiceNotFoundIsNonFatal(t *testing.T) {
	eng := newFakeEngine(true)
	eng.voiceOK = false
	o := newTestOrchestrator(eng)

	if err := o.Speak("hello", action("Missing Voice", 1.0)); err != nil {
		t.Fatalf("Speak must not fail on a missing voice: %v", err)
	}
	if o.State() != StateSpeaking {
		t.Fatalf("state = %v, want speaking", o.State())
	}

	o.Shutdown(time.Second)
}

func TestPauseResumeToggle(t *testing.T) {
	eng := newFakeEngine(true)
	o := newTestOrchestrator(eng)

	if err := o.Speak("hello", action("", 1.0)); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	o.TogglePause()
	if o.State() != StatePaused {
		t.Fatalf("state = %v, want paused", o.State())
	}
	o.TogglePause()
	if o.State() != StateSpeaking {
		t.Fatalf("state = %v, want speaking", o.State())
	}

	// Exact alternation: four toggles end back at speaking with two pauses
	// and two resumes total.
	o.TogglePause()
	o.TogglePause()
	var pauses, resumes int
	for _, ev := range eng.Events() {
		switch ev {
		case "pause":
			pauses++
		case "resume":
			resumes++
		}
	}
	if pauses != 2 || resumes != 2 {
		t.Fatalf("pauses=%d resumes=%d, want 2/2", pauses, resumes)
	}

	o.Shutdown(time.Second)
}

func TestPauseInIdleIsNoOp(t *testing.T) {
	eng := newFakeEngine(true)
	o := newTestOrchestrator(eng)

	o.TogglePause()
	if o.State() != StateIdle {
		t.Fatalf("state = %v, want idle", o.State())
	}
	if len(eng.Events()) != 0 {
		t.Fatalf("engine should not be touched: %v", eng.Events())
	}
}

func TestShutdownCancelsEverything(t *testing.T) {
	eng := newFakeEngine(true)
	o := newTestOrchestrator(eng)

	if err := o.Speak("hello", action("", 1.0)); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	rep := o.Shutdown(time.Second)
	if len(rep.Cancelled) != 1 {
		t.Fatalf("expected one cancelled task, got %+v", rep)
	}
	if o.State() != StateIdle {
		t.Fatalf("state = %v, want idle", o.State())
	}
	if o.Registry().Len() != 0 {
		t.Fatalf("registry not empty after shutdown")
	}
}
