//go:build !windows

package hotkey

import "fmt"

// NewSource returns a source that fails registration; global hotkeys are only
// wired up on Windows builds.
func NewSource(hook bool, debug bool) EventSource {
	return stubSource{}
}

type stubSource struct{}

func (stubSource) Register(combos []Combo, fire func(idx int)) error {
	return fmt.Errorf("global hotkeys not supported on this platform")
}
