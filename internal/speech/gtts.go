package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	htgotts "github.com/hegedustibor/htgo-tts"
	"github.com/hegedustibor/htgo-tts/handlers"
	"github.com/hegedustibor/htgo-tts/voices"
)

// gttsEngine is the cross-platform fallback backend built on htgo-tts. It
// synthesizes via Google Translate TTS and plays the result locally. It
// cannot pause or resume; the orchestrator logs that and keeps its state.
type gttsEngine struct {
	mu     sync.Mutex
	speech htgotts.Speech
	rate   int
	debug  bool
}

func newGTTSEngine(debug bool) *gttsEngine {
	dir := filepath.Join(os.TempDir(), "tts-read-audio")
	return &gttsEngine{
		speech: htgotts.Speech{
			Folder:   dir,
			Language: voices.English,
			Handler:  &handlers.Native{},
		},
		debug: debug,
	}
}

// Speak synthesizes and plays text. Playback runs on its own goroutine; on
// ctx cancellation Speak returns immediately and the remaining audio is
// detached (htgo-tts exposes no stop control).
func (e *gttsEngine) Speak(ctx context.Context, text string) error {
	e.mu.Lock()
	speech := e.speech
	e.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- speech.Speak(text)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("gtts speak: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *gttsEngine) Pause() error  { return ErrPauseUnsupported }
func (e *gttsEngine) Resume() error { return ErrPauseUnsupported }

// Stop is best effort: running playback cannot be interrupted, but the next
// Speak supersedes it at the orchestrator level.
func (e *gttsEngine) Stop() error { return nil }

// SetRate records the requested rate. htgo-tts exposes no playback-speed
// control, so the value is advisory only; SAPI actions carry the real rate.
func (e *gttsEngine) SetRate(rate int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rate != e.rate && rate != 0 && e.debug {
		fmt.Printf("[speech] gtts cannot change playback rate, ignoring %d\n", rate)
	}
	e.rate = rate
	return nil
}

// SetVoice interprets name as a language code (the closest concept htgo-tts
// has to a voice).
func (e *gttsEngine) SetVoice(name string) error {
	if name == "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speech.Language = name
	return nil
}

func (e *gttsEngine) Voices() ([]string, error) {
	return []string{voices.English, voices.EnglishUK, voices.German, voices.French, voices.Spanish, voices.Portuguese}, nil
}

func (e *gttsEngine) Close() error { return nil }
