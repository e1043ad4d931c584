package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/koeppern/tts-read/internal/app"
	"github.com/koeppern/tts-read/internal/config"
	"github.com/koeppern/tts-read/internal/singleton"
	"github.com/koeppern/tts-read/internal/speech"
)

func main() {
	settingsPath := flag.String("settings", config.DefaultPath(), "path to the settings file (created with defaults if missing)")
	console := flag.Bool("console", false, "run attached to the console instead of in the background")
	fastKill := flag.Bool("fast-kill", false, "kill prior instances immediately instead of asking them to exit")
	skipCleanup := flag.Bool("skip-cleanup", false, "do not look for or terminate prior instances")
	gracefulWait := flag.Duration("graceful-wait", singleton.DefaultGracefulWait, "how long a prior instance gets to exit before the hard kill")
	resetWait := flag.Duration("reset-wait", speech.DefaultResetWait, "how long a new request waits for the previous one to unwind")
	listVoices := flag.Bool("list-voices", false, "print the installed voices and exit")
	hook := flag.Bool("hook", false, "use a low-level keyboard hook instead of RegisterHotKey")
	notifyUser := flag.Bool("notify", true, "show a desktop notification when speech starts")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	// Environment switches compose with flags; either side can enable a mode.
	modes := config.ModesFromEnv()

	mode := singleton.ModeGraceful
	if *fastKill || modes.FastKill || modes.FromBatch {
		mode = singleton.ModeFastKill
	}
	if *skipCleanup || modes.SkipCleanup {
		mode = singleton.ModeSkipCleanup
	}

	opts := app.Options{
		SettingsPath: *settingsPath,
		Mode:         mode,
		GracefulWait: *gracefulWait,
		ResetWait:    *resetWait,
		Hook:         *hook,
		Console:      *console || modes.Console,
		Notify:       *notifyUser,
		ListVoices:   *listVoices,
		Debug:        *debug,
	}

	if err := app.Run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "[main] fatal: %v\n", err)
		os.Exit(1)
	}
}
