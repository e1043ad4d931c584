package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/koeppern/tts-read/internal/config"
)

type fakeOrchestrator struct {
	mu      sync.Mutex
	spoken  []string
	actions []string
	toggles int
}

func (f *fakeOrchestrator) Speak(text string, ac config.ActionConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	f.actions = append(f.actions, ac.ID)
	return nil
}

func (f *fakeOrchestrator) TogglePause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
}

func newTestApp(orch *fakeOrchestrator, clipText string, clipErr error) *App {
	settings := config.DefaultSettings()
	a := New(settings, orch, false, false)
	a.copySelection = func() error { return nil }
	a.readClipboard = func() (string, error) { return clipText, clipErr }
	return a
}

func TestHandleActionSpeaksClipboardText(t *testing.T) {
	orch := &fakeOrchestrator{}
	a := newTestApp(orch, "hello world", nil)

	a.HandleAction("action_0")

	if len(orch.spoken) != 1 || orch.spoken[0] != "hello world" {
		t.Fatalf("spoken = %v, want [hello world]", orch.spoken)
	}
	if orch.actions[0] != "action_0" {
		t.Fatalf("action = %s, want action_0", orch.actions[0])
	}
}

func TestHandleActionPauseRoutesToToggle(t *testing.T) {
	orch := &fakeOrchestrator{}
	a := newTestApp(orch, "ignored", nil)

	a.HandleAction(config.PauseAction)
	a.HandleAction(config.PauseAction)

	if orch.toggles != 2 {
		t.Fatalf("toggles = %d, want 2", orch.toggles)
	}
	if len(orch.spoken) != 0 {
		t.Fatalf("pause must not speak, got %v", orch.spoken)
	}
}

func TestHandleActionIgnoresDisabledAction(t *testing.T) {
	orch := &fakeOrchestrator{}
	// action_2 ships disabled in the defaults.
	a := newTestApp(orch, "hello", nil)

	a.HandleAction("action_2")
	a.HandleAction("no_such_action")

	if len(orch.spoken) != 0 {
		t.Fatalf("disabled action must not speak, got %v", orch.spoken)
	}
}

func TestHandleActionEmptyClipboardIsNoOp(t *testing.T) {
	orch := &fakeOrchestrator{}
	a := newTestApp(orch, "", nil)

	a.HandleAction("action_0")

	if len(orch.spoken) != 0 {
		t.Fatalf("empty clipboard must not speak, got %v", orch.spoken)
	}
}

func TestHandleActionClipboardErrorIsNotFatal(t *testing.T) {
	orch := &fakeOrchestrator{}
	a := newTestApp(orch, "", errors.New("no clipboard"))

	a.HandleAction("action_0")

	if len(orch.spoken) != 0 {
		t.Fatalf("clipboard error must not speak, got %v", orch.spoken)
	}
}

func TestHandleActionCopySelectionFailureStillReadsClipboard(t *testing.T) {
	orch := &fakeOrchestrator{}
	a := newTestApp(orch, "prior text", nil)
	a.copySelection = func() error { return errors.New("synthetic input blocked") }

	a.HandleAction("action_0")

	if len(orch.spoken) != 1 || orch.spoken[0] != "prior text" {
		t.Fatalf("spoken = %v, want [prior text]", orch.spoken)
	}
}
