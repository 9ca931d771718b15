package llm

import (
	"fmt"
	"slices"
	"sync"
)

// Factory builds a provider from configuration.
type Factory func(cfg Config) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register adds a provider factory. Provider packages call it from init:
//
//	func init() { llm.Register("ollama", New) }
//
// Importing the provider package registers it as a side effect.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New builds the provider named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q (forgot to import it?)", cfg.Provider)
	}
	return f(cfg)
}

// Providers lists the registered provider names in order.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
