// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: registry/registry.go
// Summary: Implements the panel kind registry consulted when surfaces are created.
// Usage: The session resolves the "panel_type" of new_surface/new_split here.

package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownKind is returned when a panel kind has not been registered.
var ErrUnknownKind = errors.New("registry: unknown panel kind")

// Registry manages the collection of available panel kinds.
type Registry struct {
	mu       sync.RWMutex
	kinds    map[Kind]*Manifest
	fallback Kind
}

// New creates a new empty registry whose default kind is the terminal.
func New() *Registry {
	return &Registry{
		kinds:    make(map[Kind]*Manifest),
		fallback: KindTerminal,
	}
}

// NewDefault returns a registry populated with every built-in kind.
func NewDefault() *Registry {
	r := New()
	RegisterBuiltIns(r)
	return r
}

// RegisterBuiltIn registers a panel kind compiled into the binary.
func (r *Registry) RegisterBuiltIn(manifest *Manifest) error {
	if err := manifest.Validate(); err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	copied := *manifest
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[copied.Name] = &copied
	return nil
}

// SetDefault changes the kind used when a request names none.
func (r *Registry) SetDefault(kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	r.fallback = kind
	return nil
}

// Get retrieves a manifest by name.
func (r *Registry) Get(kind Kind) (Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.kinds[kind]
	if !ok {
		return Manifest{}, false
	}
	return *m, true
}

// Resolve returns the manifest for name, or the default kind when name is
// empty.
func (r *Registry) Resolve(name string) (Manifest, error) {
	kind := Kind(name)
	if name == "" {
		r.mu.RLock()
		kind = r.fallback
		r.mu.RUnlock()
	}
	m, ok := r.Get(kind)
	if !ok {
		return Manifest{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return m, nil
}

// List returns all registered kinds sorted by display name.
func (r *Registry) List() []Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Manifest, 0, len(r.kinds))
	for _, m := range r.kinds {
		entries = append(entries, *m)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DisplayName < entries[j].DisplayName
	})
	return entries
}

// Count returns the total number of registered kinds.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kinds)
}
