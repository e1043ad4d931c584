package notify

import "github.com/gen2brain/beeep"

// Notify shows a desktop notification. Failures are swallowed; a missed
// notification never matters.
func Notify(title, message string) {
	_ = beeep.Notify(title, message, "")
}
