package speech

import (
	"errors"
	"testing"
)

func TestGTTSRateIsAdvisory(t *testing.T) {
	e := newGTTSEngine(false)
	if err := e.SetRate(5); err != nil {
		t.Fatalf("SetRate: %v", err)
	}
	if e.rate != 5 {
		t.Fatalf("rate = %d, want 5", e.rate)
	}
	// The backend has no speed knob; the request must not leak anywhere else.
	if e.speech.Language != "en" {
		t.Fatalf("language changed by SetRate: %q", e.speech.Language)
	}
}

func TestGTTSSetVoiceIsALanguageCode(t *testing.T) {
	e := newGTTSEngine(false)
	if err := e.SetVoice("de"); err != nil {
		t.Fatalf("SetVoice: %v", err)
	}
	if e.speech.Language != "de" {
		t.Fatalf("language = %q, want de", e.speech.Language)
	}
	if err := e.SetVoice(""); err != nil {
		t.Fatalf("SetVoice(empty): %v", err)
	}
	if e.speech.Language != "de" {
		t.Fatalf("empty voice must keep language, got %q", e.speech.Language)
	}
}

func TestGTTSPauseResumeUnsupported(t *testing.T) {
	e := newGTTSEngine(false)
	if err := e.Pause(); !errors.Is(err, ErrPauseUnsupported) {
		t.Fatalf("Pause = %v, want ErrPauseUnsupported", err)
	}
	if err := e.Resume(); !errors.Is(err, ErrPauseUnsupported) {
		t.Fatalf("Resume = %v, want ErrPauseUnsupported", err)
	}
}

func TestGTTSVoicesNonEmpty(t *testing.T) {
	e := newGTTSEngine(false)
	names, err := e.Voices()
	if err != nil || len(names) == 0 {
		t.Fatalf("Voices = %v, %v", names, err)
	}
}
