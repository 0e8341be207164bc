// Package engine defines the seam to the layout-generation engine: the
// Engine interface the orchestrator invokes, the injection registry that
// carries auxiliary resources into a run, and a minimal reference engine
// that keeps the shell runnable end to end.
package engine

import (
	"context"
	"sync"

	"github.com/keyforge/keyforge/internal/result"
	"github.com/keyforge/keyforge/internal/source"
)

// LogSink receives the engine's side-channel progress output.
type LogSink func(msg string)

// Options carries the per-run inputs besides the config text.
type Options struct {
	Debug      bool
	Log        LogSink
	Injections *Registry
}

// Engine produces a result tree from config text. Implementations must be
// pure functions of their inputs apart from writing to the log sink.
type Engine interface {
	Process(ctx context.Context, configText string, opts Options) (*result.Tree, error)
}

// Registry collects injections for one run. It is an explicit per-run
// object rather than process-global state, so repeated or concurrent runs
// in the same process cannot leak injections across unrelated configs.
// Later injections of the same (type, name) override earlier ones.
type Registry struct {
	mu      sync.Mutex
	entries []source.Injection
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Inject records an injection. Implements source.Injector.
func (r *Registry) Inject(injectionType, name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, source.Injection{
		Type:  injectionType,
		Name:  name,
		Value: value,
	})

	return nil
}

// Lookup returns the effective value for (injectionType, name): the last
// injection registered under that key.
func (r *Registry) Lookup(injectionType, name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].Type == injectionType && r.entries[i].Name == name {
			return r.entries[i].Value, true
		}
	}

	return "", false
}

// All returns a copy of every injection in registration order.
func (r *Registry) All() []source.Injection {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]source.Injection, len(r.entries))
	copy(out, r.entries)

	return out
}

// Len returns the number of registered injections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}
