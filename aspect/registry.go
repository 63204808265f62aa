package aspect

import (
	"sort"
	"sync"

	"github.com/wippyai/weaver/errors"
	"github.com/wippyai/weaver/ir"
)

// Registry maps aspect names to instances. Woven methods refer to aspects
// by name and resolve them at run time.
type Registry struct {
	aspects map[string]any
	mu      sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{aspects: make(map[string]any)}
}

// Register adds an aspect under name.
func (r *Registry) Register(name string, a any) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseConfig, "aspect name is empty")
	}
	if HooksOf(a) == 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("aspect %q implements no hooks", name).Build()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.aspects[name]; dup {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("aspect %q registered twice", name).Build()
	}
	r.aspects[name] = a
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, a any) *Registry {
	if err := r.Register(name, a); err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the aspect registered under name.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.aspects[name]
	return a, ok
}

// Hooks returns the hook set of the named aspect.
func (r *Registry) Hooks(name string) (ir.HookSet, bool) {
	a, ok := r.Lookup(name)
	if !ok {
		return 0, false
	}
	return HooksOf(a), true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.aspects))
	for n := range r.aspects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
