package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// PauseAction is the reserved action id bound to the pause/resume hotkey.
const PauseAction = "action_pause"

// ActionConfig describes one configured speak action.
type ActionConfig struct {
	ID      string
	Name    string
	Engine  string
	Voice   string
	Speed   float64
	Enabled bool
}

// Binding maps a hotkey combo string to an action id.
type Binding struct {
	Combo  string
	Action string
}

// Settings is the canonical configuration model the rest of the program reads.
type Settings struct {
	Actions  map[string]ActionConfig
	Bindings []Binding
	Startup  bool
}

// Action returns the config for an action id.
func (s Settings) Action(id string) (ActionConfig, bool) {
	ac, ok := s.Actions[id]
	return ac, ok
}

// EnabledActions returns ids of enabled actions in sorted order.
func (s Settings) EnabledActions() []string {
	var ids []string
	for id, ac := range s.Actions {
		if ac.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// DefaultSettings returns the built-in configuration used when no settings
// file exists or the file cannot be parsed.
func DefaultSettings() Settings {
	actions := map[string]ActionConfig{
		"action_0": {ID: "action_0", Name: "German Voice", Engine: "SAPI", Voice: "Microsoft Hedda Desktop", Speed: 0.9, Enabled: true},
		"action_1": {ID: "action_1", Name: "English Voice", Engine: "SAPI", Voice: "Microsoft Zira Desktop", Speed: 1.0, Enabled: true},
		"action_2": {ID: "action_2", Name: "Fast German", Engine: "SAPI", Voice: "Microsoft Hedda Desktop", Speed: 1.3, Enabled: false},
		"action_3": {ID: "action_3", Name: "Slow German", Engine: "SAPI", Voice: "Microsoft Hedda Desktop", Speed: 0.7, Enabled: false},
		"action_4": {ID: "action_4", Name: "Fast English", Engine: "SAPI", Voice: "Microsoft Zira Desktop", Speed: 1.3, Enabled: false},
	}
	bindings := []Binding{
		{Combo: "ctrl+4", Action: "action_0"},
		{Combo: "ctrl+2", Action: "action_1"},
		{Combo: "ctrl+5", Action: "action_2"},
		{Combo: "ctrl+6", Action: "action_3"},
		{Combo: "ctrl+7", Action: "action_4"},
		{Combo: "ctrl+3", Action: PauseAction},
	}
	return Settings{Actions: actions, Bindings: bindings}
}

// DefaultPath is the settings file location used when no -settings flag is given.
func DefaultPath() string {
	return filepath.Join("config", "settings.json")
}

// Load reads the settings file at path and normalizes it to the canonical
// model. A missing file is created with defaults. A malformed file falls back
// to defaults; the returned error is informational only and never fatal.
func Load(path string) (Settings, error) {
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if werr := SaveDefault(path); werr != nil {
			return DefaultSettings(), fmt.Errorf("create default settings: %w", werr)
		}
		return DefaultSettings(), nil
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("read settings: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return DefaultSettings(), err
	}
	return s, nil
}

// Parse decodes settings JSON in either the current nested shape or the
// legacy flat shape and normalizes it. On malformed input it returns defaults
// together with a *MalformedError.
func Parse(data []byte) (Settings, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return DefaultSettings(), &MalformedError{Err: err}
	}
	if isLegacyShape(raw) {
		return normalizeLegacy(raw), nil
	}
	return normalizeCurrent(raw), nil
}

// SaveDefault writes the default settings to path in the current nested shape.
func SaveDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(toFile(DefaultSettings()), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// MalformedError reports an unparseable settings file. It is never fatal;
// callers log it and continue with defaults.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed settings file: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// rawAction is the tolerant intermediate form of one action entry. Pointer
// fields distinguish absent from zero; unknown fields are dropped by the
// decoder.
type rawAction struct {
	Name    *string  `json:"name"`
	Engine  *string  `json:"engine"`
	Voice   *string  `json:"voice"`
	Speed   *float64 `json:"speed"`
	Enabled *bool    `json:"enabled"`
}

func (r rawAction) toAction(id string, enabledDefault bool) ActionConfig {
	ac := ActionConfig{ID: id, Engine: "SAPI", Speed: 1.0, Enabled: enabledDefault}
	if r.Name != nil {
		ac.Name = *r.Name
	}
	if r.Engine != nil && *r.Engine != "" {
		ac.Engine = *r.Engine
	}
	if r.Voice != nil {
		ac.Voice = *r.Voice
	}
	if r.Speed != nil && *r.Speed > 0 {
		ac.Speed = *r.Speed
	}
	if r.Enabled != nil {
		ac.Enabled = *r.Enabled
	}
	return ac
}

// isLegacyShape reports whether raw looks like the legacy flat schema: a
// top-level map of combo strings to voice objects, without the nested
// "hotkeys"/"actions" keys.
func isLegacyShape(raw map[string]json.RawMessage) bool {
	if _, ok := raw["hotkeys"]; ok {
		return false
	}
	if _, ok := raw["actions"]; ok {
		return false
	}
	for _, v := range raw {
		var probe rawAction
		if err := json.Unmarshal(v, &probe); err == nil {
			return true
		}
	}
	return false
}

// normalizeCurrent maps the nested schema to the canonical model. Missing
// top-level sections fall back to the built-in defaults for that section.
func normalizeCurrent(raw map[string]json.RawMessage) Settings {
	def := DefaultSettings()
	s := Settings{Actions: map[string]ActionConfig{}}

	if v, ok := raw["startup"]; ok {
		_ = json.Unmarshal(v, &s.Startup)
	}

	if v, ok := raw["actions"]; ok {
		var entries map[string]rawAction
		if err := json.Unmarshal(v, &entries); err == nil {
			for id, entry := range entries {
				s.Actions[id] = entry.toAction(id, false)
			}
		}
	}
	if len(s.Actions) == 0 {
		s.Actions = def.Actions
	}

	if v, ok := raw["hotkeys"]; ok {
		var entries map[string]string
		if err := json.Unmarshal(v, &entries); err == nil {
			ids := make([]string, 0, len(entries))
			for id := range entries {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				if combo := entries[id]; combo != "" {
					s.Bindings = append(s.Bindings, Binding{Combo: combo, Action: id})
				}
			}
		}
	}
	if len(s.Bindings) == 0 {
		s.Bindings = def.Bindings
	}
	return s
}

// normalizeLegacy maps the flat combo->voice schema to the canonical model.
// Action ids are synthesized in sorted combo order so the mapping is stable.
// Legacy entries are enabled unless the file says otherwise: listing a combo
// was the legacy way of turning it on.
func normalizeLegacy(raw map[string]json.RawMessage) Settings {
	s := Settings{Actions: map[string]ActionConfig{}}

	combos := make([]string, 0, len(raw))
	for combo := range raw {
		combos = append(combos, combo)
	}
	sort.Strings(combos)

	i := 0
	for _, combo := range combos {
		var entry rawAction
		if err := json.Unmarshal(raw[combo], &entry); err != nil {
			continue
		}
		id := fmt.Sprintf("action_%d", i)
		i++
		s.Actions[id] = entry.toAction(id, true)
		s.Bindings = append(s.Bindings, Binding{Combo: combo, Action: id})
	}
	if len(s.Actions) == 0 {
		return DefaultSettings()
	}
	return s
}

// fileSettings is the on-disk form of the current nested schema.
type fileSettings struct {
	Hotkeys map[string]string     `json:"hotkeys"`
	Actions map[string]fileAction `json:"actions"`
	Startup bool                  `json:"startup"`
}

type fileAction struct {
	Name    string  `json:"name"`
	Engine  string  `json:"engine"`
	Voice   string  `json:"voice"`
	Speed   float64 `json:"speed"`
	Enabled bool    `json:"enabled"`
}

func toFile(s Settings) fileSettings {
	f := fileSettings{
		Hotkeys: map[string]string{},
		Actions: map[string]fileAction{},
		Startup: s.Startup,
	}
	for _, b := range s.Bindings {
		f.Hotkeys[b.Action] = b.Combo
	}
	for id, ac := range s.Actions {
		f.Actions[id] = fileAction{Name: ac.Name, Engine: ac.Engine, Voice: ac.Voice, Speed: ac.Speed, Enabled: ac.Enabled}
	}
	return f
}

// Validate checks settings values and returns an error describing the first
// problem found. Problems are warnings at startup, not fatal.
func Validate(s Settings) error {
	for id, ac := range s.Actions {
		if ac.Speed < 0.5 || ac.Speed > 2.0 {
			return fmt.Errorf("action %s: speed %.2f out of range (allowed 0.5..2.0)", id, ac.Speed)
		}
		switch ac.Engine {
		case "SAPI", "GTTS":
		default:
			return fmt.Errorf("action %s: unknown engine %q (allowed SAPI, GTTS)", id, ac.Engine)
		}
	}
	for _, b := range s.Bindings {
		if b.Action != PauseAction {
			if _, ok := s.Actions[b.Action]; !ok {
				return fmt.Errorf("hotkey %s bound to unknown action %s", b.Combo, b.Action)
			}
		}
	}
	return nil
}
