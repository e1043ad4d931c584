// Package clipboard reads the text the user wants spoken.
package clipboard

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// ReadText returns the current clipboard text, trimmed. Empty or non-text
// content yields an empty string, not an error: an empty clipboard is a
// no-op for the caller.
func ReadText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// CopySelection simulates Ctrl+C so the current selection lands in the
// clipboard, then waits briefly for the focused application to service it.
// Failure is non-fatal: the caller falls back to whatever the clipboard
// already holds.
func CopySelection() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_C)
	if err := kb.Launching(); err != nil {
		return err
	}
	time.Sleep(120 * time.Millisecond)
	return nil
}
