package speech

import (
	"fmt"
	"sync"
)

// Engine kinds accepted in action configs.
const (
	EngineSAPI = "SAPI"
	EngineGTTS = "GTTS"
)

// NewEngine constructs the backend for kind. SAPI that cannot be constructed
// (missing runtime, non-Windows build) falls back to the gTTS engine rather
// than failing, mirroring how the tool degrades in the field.
func NewEngine(kind string, debug bool) (Engine, error) {
	switch kind {
	case EngineSAPI, "":
		eng, err := newSAPIEngine(debug)
		if err != nil {
			fmt.Printf("[speech] SAPI engine unavailable (%v), falling back to gTTS\n", err)
			return newGTTSEngine(debug), nil
		}
		return eng, nil
	case EngineGTTS:
		return newGTTSEngine(debug), nil
	default:
		return nil, fmt.Errorf("unknown engine kind %q", kind)
	}
}

// Provider hands engines to the orchestrator, one shared instance per kind.
type Provider interface {
	Engine(kind string) (Engine, error)
}

// CachingProvider builds engines on first use and reuses them afterwards.
type CachingProvider struct {
	mu      sync.Mutex
	debug   bool
	engines map[string]Engine
}

// NewCachingProvider creates an empty provider.
func NewCachingProvider(debug bool) *CachingProvider {
	return &CachingProvider{debug: debug, engines: map[string]Engine{}}
}

// Engine returns the shared engine for kind, constructing it if needed.
func (p *CachingProvider) Engine(kind string) (Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if kind == "" {
		kind = EngineSAPI
	}
	if eng, ok := p.engines[kind]; ok {
		return eng, nil
	}
	eng, err := NewEngine(kind, p.debug)
	if err != nil {
		return nil, err
	}
	p.engines[kind] = eng
	return eng, nil
}

// Close closes every constructed engine.
func (p *CachingProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, eng := range p.engines {
		_ = eng.Close()
	}
	p.engines = map[string]Engine{}
}
