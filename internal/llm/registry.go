package llm

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs one adapter instance. Adapters are safe for concurrent
// use, so a single instance per provider id serves every request.
type Factory func() Provider

var (
	mu        sync.RWMutex
	factories = make(map[ProviderName]Factory)
	thinkers  = make(map[ProviderName]Thinking)
)

// Register wires a provider factory under its id. Called from adapter
// package init functions; duplicate registration is a programming error.
func Register(name ProviderName, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("provider factory %s already registered", name))
	}
	factories[name] = f
}

// RegisterThinking wires the reasoning adapter for a provider id. Providers
// without reasoning support simply never call it.
func RegisterThinking(name ProviderName, t Thinking) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := thinkers[name]; exists {
		panic(fmt.Sprintf("thinking adapter %s already registered", name))
	}
	thinkers[name] = t
}

// New builds the adapter registered under name.
func New(name string) (Provider, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[ProviderName(name)]
	if !ok {
		return nil, fmt.Errorf("no provider registered for id %q", name)
	}
	return f(), nil
}

// Thinker returns the reasoning adapter for name, if one exists.
func Thinker(name string) (Thinking, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := thinkers[ProviderName(name)]
	return t, ok
}

// Names lists every registered provider id in stable order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}
