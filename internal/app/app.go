// Package app wires the supervisor, settings, orchestrator and hotkey
// dispatch together and runs the process lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koeppern/tts-read/internal/clipboard"
	"github.com/koeppern/tts-read/internal/config"
	"github.com/koeppern/tts-read/internal/hotkey"
	"github.com/koeppern/tts-read/internal/notify"
	"github.com/koeppern/tts-read/internal/singleton"
	"github.com/koeppern/tts-read/internal/speech"
	"github.com/koeppern/tts-read/internal/tasks"
)

// Options are the resolved startup options (flags merged with env switches).
type Options struct {
	SettingsPath string
	Mode         singleton.Mode
	GracefulWait time.Duration // prior-instance exit budget before the hard kill
	ResetWait    time.Duration // previous-task unwind budget on pre-emption
	Hook         bool
	Console      bool
	Notify       bool
	ListVoices   bool
	Debug        bool
}

// orchestrator is the slice of the speech orchestrator the hotkey path needs.
type orchestrator interface {
	Speak(text string, ac config.ActionConfig) error
	TogglePause()
}

// App routes resolved hotkey actions to the orchestrator. It is constructed
// with explicit dependencies so tests can build isolated instances.
type App struct {
	settings config.Settings
	orch     orchestrator
	notify   bool
	debug    bool

	// Clipboard access, replaceable in tests.
	copySelection func() error
	readClipboard func() (string, error)
}

// New creates an App over settings and orch.
func New(settings config.Settings, orch orchestrator, notifyUser bool, debug bool) *App {
	return &App{
		settings:      settings,
		orch:          orch,
		notify:        notifyUser,
		debug:         debug,
		copySelection: clipboard.CopySelection,
		readClipboard: clipboard.ReadText,
	}
}

// HandleAction services one resolved hotkey press: the pause action toggles
// playback, a speak action reads the clipboard and hands the text to the
// orchestrator. It runs on a background goroutine, never on the OS dispatch
// context.
func (a *App) HandleAction(actionID string) {
	if actionID == config.PauseAction {
		a.orch.TogglePause()
		return
	}

	ac, ok := a.settings.Action(actionID)
	if !ok || !ac.Enabled {
		if a.debug {
			fmt.Printf("[hotkey] action %s unknown or disabled, ignoring\n", actionID)
		}
		return
	}

	if err := a.copySelection(); err != nil && a.debug {
		fmt.Printf("[clipboard] copy-selection failed (%v), using clipboard as-is\n", err)
	}
	text, err := a.readClipboard()
	if err != nil {
		fmt.Printf("[clipboard] read failed: %v\n", err)
		return
	}
	if text == "" {
		if a.debug {
			fmt.Println("[clipboard] empty, nothing to speak")
		}
		return
	}

	if a.notify {
		notify.Notify("tts-read", fmt.Sprintf("Speaking: %s", ac.Name))
	}
	if err := a.orch.Speak(text, ac); err != nil {
		fmt.Printf("[speech] %v\n", err)
		if a.notify {
			notify.Notify("tts-read", "Speech failed")
		}
	}
}

// Run starts the program: single-instance acquisition first, then settings,
// engines, hotkeys, and finally the wait-for-signal loop. Only lock
// acquisition failure is fatal.
func Run(opts Options) error {
	store := singleton.NewStore(singleton.DefaultLockPath())
	sup := singleton.New(store, opts.Debug)
	sup.SetGracefulWait(opts.GracefulWait)
	own, err := sup.Acquire(opts.Mode)
	if err != nil {
		return err
	}
	defer func() {
		if err := own.Release(); err != nil {
			fmt.Printf("[lock] release failed: %v\n", err)
		}
	}()

	settings, err := config.Load(opts.SettingsPath)
	if err != nil {
		fmt.Printf("[config] %v, continuing with defaults\n", err)
	}
	if err := config.Validate(settings); err != nil {
		fmt.Printf("[config] warning: %v\n", err)
	}

	provider := speech.NewCachingProvider(opts.Debug)
	defer provider.Close()

	if opts.ListVoices {
		return listVoices(provider)
	}

	registry := tasks.NewRegistry()
	orch := speech.NewOrchestrator(provider, registry, opts.Debug)
	orch.SetResetWait(opts.ResetWait)
	a := New(settings, orch, opts.Notify, opts.Debug)

	dispatcher := hotkey.NewDispatcher(opts.Debug)
	for _, b := range settings.Bindings {
		if b.Action != config.PauseAction {
			ac, ok := settings.Action(b.Action)
			if !ok || !ac.Enabled {
				if opts.Debug {
					fmt.Printf("[hotkey] skipping %s: action %s disabled\n", b.Combo, b.Action)
				}
				continue
			}
		}
		if err := dispatcher.Add(b.Combo, b.Action); err != nil {
			fmt.Printf("[hotkey] %v, skipping\n", err)
		}
	}

	src := hotkey.NewSource(opts.Hook, opts.Debug)
	if err := dispatcher.Start(src, a.HandleAction); err != nil {
		// Hotkeys are the main input, but a registration failure still
		// leaves a usable process (e.g. debugging on a headless box).
		fmt.Printf("[hotkey] %v; running without hotkeys\n", err)
	}

	printBanner(settings, dispatcher, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Println("[main] shutting down")
	rep := orch.Shutdown(time.Second)
	if len(rep.Abandoned) > 0 {
		fmt.Printf("[main] %d speech task(s) abandoned at shutdown\n", len(rep.Abandoned))
	}
	return nil
}

func listVoices(provider *speech.CachingProvider) error {
	eng, err := provider.Engine(speech.EngineSAPI)
	if err != nil {
		return err
	}
	voices, err := eng.Voices()
	if err != nil {
		return fmt.Errorf("list voices: %w", err)
	}
	fmt.Println("[main] available voices:")
	for i, v := range voices {
		fmt.Printf("  %d. %s\n", i+1, v)
	}
	return nil
}

func printBanner(settings config.Settings, dispatcher *hotkey.Dispatcher, opts Options) {
	mode := "console"
	if !opts.Console {
		mode = "background"
	}
	fmt.Printf("[main] ready (%s mode). Hotkeys:\n", mode)
	for _, b := range dispatcher.Bindings() {
		if b.Action == config.PauseAction {
			fmt.Printf("  %s -> pause/resume\n", b.Combo)
			continue
		}
		ac, _ := settings.Action(b.Action)
		fmt.Printf("  %s -> %s (%s, voice %q, speed %.1f)\n", b.Combo, b.Action, ac.Name, ac.Voice, ac.Speed)
	}
}
