// Package hotkey resolves configured key combos and dispatches OS hotkey
// events to actions.
package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifier is the single modifier of a combo.
type Modifier int

const (
	ModCtrl Modifier = iota + 1
	ModAlt
	ModShift
	ModWin
)

func (m Modifier) String() string {
	switch m {
	case ModCtrl:
		return "ctrl"
	case ModAlt:
		return "alt"
	case ModShift:
		return "shift"
	case ModWin:
		return "win"
	}
	return fmt.Sprintf("modifier(%d)", int(m))
}

// Combo is a parsed, normalized hotkey combination.
type Combo struct {
	Raw string
	Mod Modifier
	Key string
}

func (c Combo) String() string {
	return c.Mod.String() + "+" + c.Key
}

// BadComboError reports a combo string that does not fit the
// modifier+key grammar. The binding is skipped; startup continues.
type BadComboError struct {
	Combo  string
	Reason string
}

func (e *BadComboError) Error() string {
	return fmt.Sprintf("invalid hotkey %q: %s", e.Combo, e.Reason)
}

// Parse validates a combo of the form "modifier+key": case-insensitive,
// exactly one modifier from ctrl/alt/shift/win and one key token (a letter,
// a digit, numpadN, or a named key).
func Parse(raw string) (Combo, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Combo{}, &BadComboError{Combo: raw, Reason: "expected modifier+key"}
	}

	var mod Modifier
	switch parts[0] {
	case "ctrl", "control":
		mod = ModCtrl
	case "alt", "menu":
		mod = ModAlt
	case "shift":
		mod = ModShift
	case "win", "meta", "super":
		mod = ModWin
	default:
		return Combo{}, &BadComboError{Combo: raw, Reason: fmt.Sprintf("unknown modifier %q", parts[0])}
	}

	key, err := normalizeKey(parts[1])
	if err != nil {
		return Combo{}, &BadComboError{Combo: raw, Reason: err.Error()}
	}
	return Combo{Raw: raw, Mod: mod, Key: key}, nil
}

var namedKeys = map[string]bool{
	"esc": true, "space": true, "enter": true, "tab": true,
	"backspace": true, "insert": true, "delete": true,
	"home": true, "end": true, "pageup": true, "pagedown": true,
	"left": true, "up": true, "right": true, "down": true,
}

func normalizeKey(tok string) (string, error) {
	if len(tok) == 1 {
		ch := tok[0]
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			return tok, nil
		}
	}
	for _, prefix := range []string{"numpad", "num", "kp"} {
		if n, ok := strings.CutPrefix(tok, prefix); ok {
			if d, err := strconv.Atoi(n); err == nil && d >= 0 && d <= 9 {
				return "numpad" + n, nil
			}
		}
	}
	switch tok {
	case "escape":
		return "esc", nil
	case "return":
		return "enter", nil
	}
	if namedKeys[tok] {
		return tok, nil
	}
	if n, ok := strings.CutPrefix(tok, "f"); ok {
		if d, err := strconv.Atoi(n); err == nil && d >= 1 && d <= 24 {
			return tok, nil
		}
	}
	return "", fmt.Errorf("unsupported key token %q", tok)
}

// Binding pairs a parsed combo with the action it triggers.
type Binding struct {
	Combo  Combo
	Action string
}

// EventSource is the OS adapter that delivers hotkey presses. fire is called
// on the OS dispatch context with the index of the pressed combo; it must not
// block.
type EventSource interface {
	Register(combos []Combo, fire func(idx int)) error
}

// Dispatcher resolves raw combos against configured bindings and forwards
// presses to a handler.
type Dispatcher struct {
	debug    bool
	bindings []Binding
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(debug bool) *Dispatcher {
	return &Dispatcher{debug: debug}
}

// Add parses combo and binds it to action. A bad combo returns a
// *BadComboError and leaves existing bindings untouched.
func (d *Dispatcher) Add(combo, action string) error {
	c, err := Parse(combo)
	if err != nil {
		return err
	}
	for _, b := range d.bindings {
		if b.Combo.Mod == c.Mod && b.Combo.Key == c.Key {
			return &BadComboError{Combo: combo, Reason: fmt.Sprintf("already bound to %s", b.Action)}
		}
	}
	d.bindings = append(d.bindings, Binding{Combo: c, Action: action})
	if d.debug {
		fmt.Printf("[hotkey] bound %s -> %s\n", c, action)
	}
	return nil
}

// Bindings returns the accepted bindings.
func (d *Dispatcher) Bindings() []Binding {
	out := make([]Binding, len(d.bindings))
	copy(out, d.bindings)
	return out
}

// Resolve maps a raw combo string to its action id.
func (d *Dispatcher) Resolve(raw string) (string, bool) {
	c, err := Parse(raw)
	if err != nil {
		return "", false
	}
	for _, b := range d.bindings {
		if b.Combo.Mod == c.Mod && b.Combo.Key == c.Key {
			return b.Action, true
		}
	}
	return "", false
}

// Start registers all bindings with src. Presses are handed off to a fresh
// goroutine so the OS dispatch context never blocks on synthesis work.
func (d *Dispatcher) Start(src EventSource, handler func(action string)) error {
	combos := make([]Combo, len(d.bindings))
	for i, b := range d.bindings {
		combos[i] = b.Combo
	}
	bindings := d.Bindings()
	return src.Register(combos, func(idx int) {
		if idx < 0 || idx >= len(bindings) {
			return
		}
		go handler(bindings[idx].Action)
	})
}
