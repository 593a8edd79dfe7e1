package controller

import (
	"fmt"
	"sync"

	"github.com/zeusync/vrhand/pkg/sequence"
)

// Factory builds a fresh State for every transition.
type Factory func() State

// Registry maps state names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry returns a registry holding the idle, teleport_aim and
// grab states.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(StateIdle, func() State { return &Idle{} })
	r.Register(StateTeleportAim, func() State { return &TeleportAim{} })
	r.Register(StateGrab, func() State { return &Grab{} })
	return r
}

func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	_, ok := r.factories[name]
	r.mu.RUnlock()
	return ok
}

func (r *Registry) New(name string) (State, error) {
	r.mu.RLock()
	f := r.factories[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return f(), nil
}

// Names lists registered states in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	return sequence.From(names).Sort(func(a, b string) bool { return a < b }).Collect()
}
