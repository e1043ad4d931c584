//go:build windows

package speech

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// SAPI SpVoice constants.
const (
	svsfAsync            = 1 // SVSFlagsAsync
	svsfPurgeBeforeSpeak = 2 // SVSFPurgeBeforeSpeak

	runStateSpeaking = 2 // SpeechRunState SRSEIsSpeaking
)

// sapiEngine wraps the Windows SAPI.SpVoice COM automation object. All COM
// calls run on one locked OS thread owning the apartment; public methods post
// closures to that thread.
type sapiEngine struct {
	calls chan sapiCall
	quit  chan struct{}
	once  sync.Once
	debug bool
}

type sapiCall struct {
	fn   func(v *ole.IDispatch) error
	done chan error
}

// newSAPIEngine constructs the SpVoice object. Construction failure (no SAPI
// runtime, COM init error) is returned to the caller so it can fall back to
// another engine.
func newSAPIEngine(debug bool) (*sapiEngine, error) {
	e := &sapiEngine{
		calls: make(chan sapiCall),
		quit:  make(chan struct{}),
		debug: debug,
	}
	ready := make(chan error, 1)
	go e.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return e, nil
}

func (e *sapiEngine) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		ready <- fmt.Errorf("CoInitializeEx: %w", err)
		return
	}
	defer ole.CoUninitialize()

	unk, err := oleutil.CreateObject("SAPI.SpVoice")
	if err != nil {
		ready <- fmt.Errorf("create SAPI.SpVoice: %w", err)
		return
	}
	voice, err := unk.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		unk.Release()
		ready <- fmt.Errorf("SpVoice IDispatch: %w", err)
		return
	}
	ready <- nil

	for {
		select {
		case call := <-e.calls:
			call.done <- call.fn(voice)
		case <-e.quit:
			voice.Release()
			unk.Release()
			return
		}
	}
}

// do runs fn on the COM thread and returns its error.
func (e *sapiEngine) do(fn func(v *ole.IDispatch) error) error {
	call := sapiCall{fn: fn, done: make(chan error, 1)}
	select {
	case e.calls <- call:
		return <-call.done
	case <-e.quit:
		return fmt.Errorf("sapi engine closed")
	}
}

// Speak starts asynchronous playback (purging anything queued) and blocks
// until SAPI reports the run state left speaking or ctx is cancelled. On
// cancellation the pending audio is purged before returning.
func (e *sapiEngine) Speak(ctx context.Context, text string) error {
	err := e.do(func(v *ole.IDispatch) error {
		_, err := oleutil.CallMethod(v, "Speak", text, svsfAsync|svsfPurgeBeforeSpeak)
		return err
	})
	if err != nil {
		return fmt.Errorf("sapi speak: %w", err)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = e.Stop()
			return ctx.Err()
		case <-ticker.C:
			speaking, err := e.runningState()
			if err != nil {
				return err
			}
			if !speaking {
				return nil
			}
		}
	}
}

func (e *sapiEngine) runningState() (bool, error) {
	var speaking bool
	err := e.do(func(v *ole.IDispatch) error {
		status, err := oleutil.GetProperty(v, "Status")
		if err != nil {
			return err
		}
		defer status.Clear()
		state, err := oleutil.GetProperty(status.ToIDispatch(), "RunningState")
		if err != nil {
			return err
		}
		defer state.Clear()
		speaking = int(state.Val) == runStateSpeaking
		return nil
	})
	return speaking, err
}

func (e *sapiEngine) Pause() error {
	return e.do(func(v *ole.IDispatch) error {
		_, err := oleutil.CallMethod(v, "Pause")
		return err
	})
}

func (e *sapiEngine) Resume() error {
	return e.do(func(v *ole.IDispatch) error {
		_, err := oleutil.CallMethod(v, "Resume")
		return err
	})
}

// Stop purges queued and playing audio. SAPI has no dedicated stop call; an
// empty async speak with the purge flag is the documented idiom.
func (e *sapiEngine) Stop() error {
	return e.do(func(v *ole.IDispatch) error {
		_, err := oleutil.CallMethod(v, "Speak", "", svsfAsync|svsfPurgeBeforeSpeak)
		return err
	})
}

func (e *sapiEngine) SetRate(rate int) error {
	return e.do(func(v *ole.IDispatch) error {
		_, err := oleutil.PutProperty(v, "Rate", rate)
		return err
	})
}

// SetVoice scans the installed voice tokens for a description containing
// name. The scan can be slow on systems with many voices, which is why the
// orchestrator applies the rate first.
func (e *sapiEngine) SetVoice(name string) error {
	return e.do(func(v *ole.IDispatch) error {
		tokens, err := oleutil.CallMethod(v, "GetVoices")
		if err != nil {
			return err
		}
		defer tokens.Clear()
		list := tokens.ToIDispatch()
		countVar, err := oleutil.GetProperty(list, "Count")
		if err != nil {
			return err
		}
		count := int(countVar.Val)
		countVar.Clear()

		for i := 0; i < count; i++ {
			item, err := oleutil.CallMethod(list, "Item", i)
			if err != nil {
				continue
			}
			token := item.ToIDispatch()
			desc, err := oleutil.CallMethod(token, "GetDescription")
			if err != nil {
				item.Clear()
				continue
			}
			if strings.Contains(strings.ToLower(desc.ToString()), strings.ToLower(name)) {
				_, err := oleutil.PutProperty(v, "Voice", token)
				desc.Clear()
				item.Clear()
				if err != nil {
					return err
				}
				if e.debug {
					fmt.Printf("[speech] voice set to %q\n", name)
				}
				return nil
			}
			desc.Clear()
			item.Clear()
		}
		return fmt.Errorf("%w: %q", ErrVoiceNotFound, name)
	})
}

func (e *sapiEngine) Voices() ([]string, error) {
	var names []string
	err := e.do(func(v *ole.IDispatch) error {
		tokens, err := oleutil.CallMethod(v, "GetVoices")
		if err != nil {
			return err
		}
		defer tokens.Clear()
		list := tokens.ToIDispatch()
		countVar, err := oleutil.GetProperty(list, "Count")
		if err != nil {
			return err
		}
		count := int(countVar.Val)
		countVar.Clear()

		for i := 0; i < count; i++ {
			item, err := oleutil.CallMethod(list, "Item", i)
			if err != nil {
				continue
			}
			token := item.ToIDispatch()
			if desc, err := oleutil.CallMethod(token, "GetDescription"); err == nil {
				names = append(names, desc.ToString())
				desc.Clear()
			}
			item.Clear()
		}
		return nil
	})
	return names, err
}

func (e *sapiEngine) Close() error {
	e.once.Do(func() { close(e.quit) })
	return nil
}
