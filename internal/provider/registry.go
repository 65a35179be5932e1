package provider

import (
	"fmt"
	"sort"

	"deep-search/internal/config"
)

// Registry resolves a provider name to a configured Adapter at request time.
type Registry struct {
	fallback Name
	adapters map[Name]Adapter
}

// NewRegistry creates an empty registry; fallback is used for requests that name no provider.
func NewRegistry(fallback Name) *Registry {
	return &Registry{
		fallback: fallback,
		adapters: make(map[Name]Adapter),
	}
}

// Register makes a ready adapter available under its own name.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Adapter returns the adapter for name, or the fallback when name is empty.
// A known provider that was never registered has no credential and yields a
// *config.MissingKeyError rather than ErrUnknownProvider.
func (r *Registry) Adapter(name Name) (Adapter, error) {
	if name == "" {
		name = r.fallback
	}
	if a, ok := r.adapters[name]; ok {
		return a, nil
	}
	if _, known := catalog[name]; known {
		return nil, &config.MissingKeyError{Service: name.Label(), EnvVar: name.EnvVar()}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Names lists the configured providers in sorted order.
func (r *Registry) Names() []Name {
	names := make([]Name, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
