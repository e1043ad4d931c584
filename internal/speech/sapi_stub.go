//go:build !windows

package speech

import "fmt"

// newSAPIEngine is not available off Windows; the factory falls back to the
// gTTS engine.
func newSAPIEngine(debug bool) (Engine, error) {
	return nil, fmt.Errorf("SAPI engine not supported on this platform")
}
