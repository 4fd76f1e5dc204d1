// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package suite

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound indicates the requested strategy is not registered.
	ErrNotFound = errors.New("strategy not found")

	// ErrAlreadyRegistered indicates a strategy with the same name exists.
	ErrAlreadyRegistered = errors.New("strategy already registered")

	// ErrNilStrategy indicates a nil strategy or one without a name or builder.
	ErrNilStrategy = errors.New("strategy must not be nil")
)

// Strategy is a named callable factory.
type Strategy struct {
	// Name identifies the strategy in the registry and in reports.
	Name string

	// Description is shown by the list command.
	Description string

	// Async selects BenchmarkAsync for the built callable.
	Async bool

	// Build returns a callable accepted by engine.Engine, operating on
	// input of the given size. Input is prepared here, outside the
	// measured section. An error means no input could be prepared.
	Build func(size int) (any, error)
}

// Registry holds strategies by name.
//
// Description:
//
//	The Registry is the lookup table behind the CLI's list, run and
//	compare commands. Names are unique.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]*Strategy
}

// NewRegistry creates an empty registry.
//
// Outputs:
//   - *Registry: The new registry. Never nil.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]*Strategy),
	}
}

// Register adds s under s.Name.
//
// Inputs:
//   - s: The strategy. Must not be nil and must have a Name and Build.
//
// Outputs:
//   - error: nil on success, ErrNilStrategy if s is incomplete,
//     ErrAlreadyRegistered if the name is taken.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Register(s *Strategy) error {
	if s == nil || s.Name == "" || s.Build == nil {
		return ErrNilStrategy
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[s.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, s.Name)
	}
	r.strategies[s.Name] = s
	return nil
}

// MustRegister registers s and panics on error.
//
// Should only be used while building a registry at startup.
func (r *Registry) MustRegister(s *Strategy) {
	if err := r.Register(s); err != nil {
		name := "<nil>"
		if s != nil {
			name = s.Name
		}
		panic(fmt.Sprintf("suite: failed to register %s: %v", name, err))
	}
}

// Get returns the strategy registered under name.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Get(name string) (*Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// List returns the registered names, sorted.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered strategies.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}
