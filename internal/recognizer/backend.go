package recognizer

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Config selects and configures a recognizer backend.
type Config struct {
	Backend   string // "whisperer", "tesseract" or "none"
	Whisperer WhispererConfig
	Languages []string // Used by local engines
}

// Factory builds a backend from Config.
type Factory func(cfg Config) (Recognizer, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Factory{}
)

func init() {
	RegisterBackend("whisperer", func(cfg Config) (Recognizer, error) {
		return NewWhisperer(cfg.Whisperer), nil
	})
	RegisterBackend("none", func(Config) (Recognizer, error) {
		return Unavailable{}, nil
	})
}

// RegisterBackend makes a backend selectable by name. Backends that need
// native libraries register themselves from their own package.
func RegisterBackend(name string, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the configured backend. Any failure degrades to Unavailable.
func New(cfg Config) Recognizer {
	name := cfg.Backend
	if name == "" {
		name = "whisperer"
	}
	backendsMu.RLock()
	f, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		slog.Warn("Unknown recognizer backend, recognition unavailable", "backend", name)
		return Unavailable{}
	}
	r, err := f(cfg)
	if err != nil {
		slog.Warn("Failed to initialize recognizer, recognition unavailable",
			"backend", name, "error", fmt.Sprintf("%v", err))
		return Unavailable{}
	}
	return r
}
