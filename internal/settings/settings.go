// Package settings holds the runtime-tunable display settings of the card
// service. Settings live for the lifetime of the process and reset on restart.
//
// Readers get an immutable Snapshot; writers build a new snapshot under a
// single lock and publish it atomically, so a page render never observes a
// half-applied update.
package settings

import (
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/sakif/business-cards/internal/apperror"
)

const (
	NamespacePrefs = "prefs"

	KeyMode     = "mode"
	DefaultMode = "dark"
)

// Snapshot is a read-only view of every namespace.
type Snapshot struct {
	values map[string]map[string]string
}

// Get returns the value of key in namespace, or "" when unset.
func (s Snapshot) Get(namespace, key string) string {
	return s.values[namespace][key]
}

// Mode is the display mode pages render with.
func (s Snapshot) Mode() string {
	if m := s.Get(NamespacePrefs, KeyMode); m != "" {
		return m
	}
	return DefaultMode
}

// Store owns the current snapshot.
type Store struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[Snapshot]
}

// New returns a store holding the default settings.
func New() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{values: map[string]map[string]string{
		NamespacePrefs: {KeyMode: DefaultMode},
	}})
	return s
}

// Snapshot returns the current settings.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Set updates key in namespace. Only namespaces present at startup accept
// writes; anything else is a validation error.
func (s *Store) Set(namespace, key, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	if _, ok := old.values[namespace]; !ok {
		return apperror.ValidationFailed("config", fmt.Sprintf("Invalid configuration %s", namespace))
	}

	next := make(map[string]map[string]string, len(old.values))
	for ns, kv := range old.values {
		next[ns] = kv
	}
	updated := maps.Clone(old.values[namespace])
	updated[key] = val
	next[namespace] = updated

	s.current.Store(&Snapshot{values: next})
	return nil
}
