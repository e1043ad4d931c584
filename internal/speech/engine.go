// Package speech drives the text-to-speech engines and owns the playback
// state machine.
package speech

import (
	"context"
	"errors"
	"math"
)

// ErrVoiceNotFound reports that a configured voice is not installed. Callers
// keep the engine's current voice and log the miss.
var ErrVoiceNotFound = errors.New("voice not found")

// ErrPauseUnsupported reports that the active engine cannot pause or resume.
var ErrPauseUnsupported = errors.New("pause/resume not supported by this engine")

// Engine is the narrow contract the orchestrator needs from a synthesis
// backend. Speak blocks until playback finishes or ctx is cancelled; Pause,
// Resume, Stop, SetRate and SetVoice are expected to return quickly.
type Engine interface {
	Speak(ctx context.Context, text string) error
	Pause() error
	Resume() error
	Stop() error
	SetRate(rate int) error
	SetVoice(name string) error
	Voices() ([]string, error)
	Close() error
}

// SAPIRate maps the configured speed (0.5..2.0, 1.0 = normal) to the SAPI
// rate scale (-10..10).
func SAPIRate(speed float64) int {
	rate := int(math.Round((speed - 1.0) * 10))
	if rate < -10 {
		rate = -10
	}
	if rate > 10 {
		rate = 10
	}
	return rate
}
