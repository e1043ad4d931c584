//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unsafe"
)

// NewSource returns the Windows hotkey event source. hook selects the
// low-level keyboard hook instead of RegisterHotKey; the hook swallows the
// keystroke so it does not reach the focused window, but needs broader
// privileges.
func NewSource(hook bool, debug bool) EventSource {
	if hook {
		return &hookSource{debug: debug}
	}
	return &registerSource{debug: debug}
}

const (
	modAltFlag   = 0x0001
	modCtrlFlag  = 0x0002
	modShiftFlag = 0x0004
	modWinFlag   = 0x0008
)

func modFlag(m Modifier) uint32 {
	switch m {
	case ModAlt:
		return modAltFlag
	case ModCtrl:
		return modCtrlFlag
	case ModShift:
		return modShiftFlag
	case ModWin:
		return modWinFlag
	}
	return 0
}

// vkCode maps a normalized key token to a Windows virtual-key code.
func vkCode(key string) (uint32, bool) {
	if len(key) == 1 {
		ch := key[0]
		if ch >= 'a' && ch <= 'z' {
			return uint32(ch - 'a' + 'A'), true
		}
		if ch >= '0' && ch <= '9' {
			return uint32(ch), true
		}
	}
	if n, ok := strings.CutPrefix(key, "numpad"); ok {
		if d, err := strconv.Atoi(n); err == nil && d >= 0 && d <= 9 {
			return 0x60 + uint32(d), true
		}
	}
	if n, ok := strings.CutPrefix(key, "f"); ok {
		if d, err := strconv.Atoi(n); err == nil && d >= 1 && d <= 24 {
			return 0x70 + uint32(d-1), true
		}
	}
	named := map[string]uint32{
		"esc":       0x1B,
		"space":     0x20,
		"enter":     0x0D,
		"tab":       0x09,
		"backspace": 0x08,
		"insert":    0x2D,
		"delete":    0x2E,
		"home":      0x24,
		"end":       0x23,
		"pageup":    0x21,
		"pagedown":  0x22,
		"left":      0x25,
		"up":        0x26,
		"right":     0x27,
		"down":      0x28,
	}
	v, ok := named[key]
	return v, ok
}

type win32Msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	PtX     int32
	PtY     int32
}

// registerSource implements EventSource via RegisterHotKey and a GetMessage
// loop on a locked OS thread.
type registerSource struct {
	debug bool
}

func (s *registerSource) Register(combos []Combo, fire func(idx int)) error {
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		user32 := syscall.NewLazyDLL("user32.dll")
		procRegisterHotKey := user32.NewProc("RegisterHotKey")
		procUnregisterHotKey := user32.NewProc("UnregisterHotKey")
		procGetMessageW := user32.NewProc("GetMessageW")

		registered := 0
		for i, c := range combos {
			vk, ok := vkCode(c.Key)
			if !ok {
				// Parse already validated the token; an unmapped key here is
				// a programming error, skip it like a bad binding.
				fmt.Printf("[hotkey] no virtual-key mapping for %q, skipping\n", c.Key)
				continue
			}
			r, _, _ := procRegisterHotKey.Call(0, uintptr(i+1), uintptr(modFlag(c.Mod)), uintptr(vk))
			if r == 0 {
				fmt.Printf("[hotkey] RegisterHotKey failed for %s, skipping\n", c)
				continue
			}
			registered++
			if s.debug {
				fmt.Printf("[hotkey] registered %s (id=%d vk=0x%X)\n", c, i+1, vk)
			}
		}
		if registered == 0 {
			for i := range combos {
				procUnregisterHotKey.Call(0, uintptr(i+1))
			}
			errCh <- fmt.Errorf("no hotkeys could be registered")
			return
		}
		errCh <- nil

		const wmHotkey = 0x0312
		var msg win32Msg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) == -1 || ret == 0 {
				fmt.Println("[hotkey] message loop ended")
				return
			}
			if msg.Message == wmHotkey {
				id := int(msg.WParam)
				if s.debug {
					fmt.Printf("[hotkey] WM_HOTKEY id=%d\n", id)
				}
				fire(id - 1)
			}
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timeout registering hotkeys")
	}
}

// hookSource implements EventSource via a WH_KEYBOARD_LL hook. Matched
// keystrokes are swallowed.
type hookSource struct {
	debug bool
}

func (s *hookSource) Register(combos []Combo, fire func(idx int)) error {
	type candidate struct {
		idx int
		mod uint32
	}

	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		lookup := make(map[uint32][]candidate)
		for i, c := range combos {
			vk, ok := vkCode(c.Key)
			if !ok {
				fmt.Printf("[hotkey] no virtual-key mapping for %q, skipping\n", c.Key)
				continue
			}
			lookup[vk] = append(lookup[vk], candidate{idx: i, mod: modFlag(c.Mod)})
			if s.debug {
				fmt.Printf("[hotkey] hook watching %s (vk=0x%X)\n", c, vk)
			}
		}
		if len(lookup) == 0 {
			errCh <- fmt.Errorf("no hotkeys could be registered")
			return
		}

		user32 := syscall.NewLazyDLL("user32.dll")
		procSetWindowsHookExW := user32.NewProc("SetWindowsHookExW")
		procUnhookWindowsHookEx := user32.NewProc("UnhookWindowsHookEx")
		procCallNextHookEx := user32.NewProc("CallNextHookEx")
		procGetMessageW := user32.NewProc("GetMessageW")
		procGetAsyncKeyState := user32.NewProc("GetAsyncKeyState")

		const (
			whKeyboardLL  = 13
			wmKeydown     = 0x0100
			wmKeyup       = 0x0101
			wmSyskeydown  = 0x0104
			wmSyskeyup    = 0x0105
			llkhfInjected = 0x10
			vkShift       = 0x10
			vkControl     = 0x11
			vkMenu        = 0x12
			vkLWin        = 0x5B
			vkRWin        = 0x5C
		)

		type kbdllHookStruct struct {
			vkCode      uint32
			scanCode    uint32
			flags       uint32
			time        uint32
			dwExtraInfo uintptr
		}

		modDown := func(vk uintptr) bool {
			st, _, _ := procGetAsyncKeyState.Call(vk)
			return st&0x8000 != 0
		}
		modsSatisfied := func(required uint32) bool {
			switch required {
			case modCtrlFlag:
				return modDown(vkControl)
			case modAltFlag:
				return modDown(vkMenu)
			case modShiftFlag:
				return modDown(vkShift)
			case modWinFlag:
				return modDown(vkLWin) || modDown(vkRWin)
			}
			return false
		}

		swallowed := make(map[uint32]bool)

		callback := syscall.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) < 0 {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}

			msg := uint32(wParam)
			k := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			if k.flags&llkhfInjected != 0 {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}

			if msg == wmKeydown || msg == wmSyskeydown {
				if cands, ok := lookup[k.vkCode]; ok {
					for _, c := range cands {
						if modsSatisfied(c.mod) {
							swallowed[k.vkCode] = true
							fire(c.idx)
							return uintptr(1)
						}
					}
				}
			}
			if msg == wmKeyup || msg == wmSyskeyup {
				if swallowed[k.vkCode] {
					delete(swallowed, k.vkCode)
					return uintptr(1)
				}
			}

			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, _ := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), callback, 0, 0)
		if hook == 0 {
			errCh <- fmt.Errorf("SetWindowsHookExW failed")
			return
		}
		if s.debug {
			fmt.Println("[hotkey] low-level hook installed")
		}
		errCh <- nil

		var msg win32Msg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) == -1 || ret == 0 {
				break
			}
		}
		procUnhookWindowsHookEx.Call(hook)
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timeout installing low-level hook")
	}
}
