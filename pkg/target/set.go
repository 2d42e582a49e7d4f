package target

import (
	"sync"

	"github.com/nimbuild/nimbuild/pkg/scope"
)

// Set is the concurrent target-interning set. Mutations beyond insertion
// are done under the per-target lock; the set itself only ever grows.
// A target with an unspecified extension and one with a specific
// extension hash to the same bucket and are unified by refining the
// stored extension the first time a concrete one is observed.
type Set struct {
	mu      sync.RWMutex
	byKey   map[bucket][]*Target // bucket may hold multiple distinct extensions
}

// NewSet constructs an empty target set.
func NewSet() *Set {
	return &Set{byKey: make(map[bucket][]*Target)}
}

// Intern returns the target for k, creating it if absent. If k has no
// extension specified and an unspecified-extension target already exists
// in the bucket, that target is returned unchanged. If k specifies an
// extension and a previously-unspecified target exists in the bucket, that
// target's extension is refined in place and its pointer returned, per
// the C3 identity invariant: target identity is immutable, but the
// interned extension may be refined from "unspecified" to a concrete
// value exactly once.
func (s *Set) Intern(k Key, sc *scope.Scope) *Target {
	b := k.bucket()

	s.mu.RLock()
	for _, t := range s.byKey[b] {
		if t.Ext == k.Ext {
			s.mu.RUnlock()
			return t
		}
	}
	if k.Ext != "" {
		for _, t := range s.byKey[b] {
			if t.Ext == "" {
				s.mu.RUnlock()
				t.RefineExtension(k.Ext)
				return t
			}
		}
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.byKey[b] {
		if t.Ext == k.Ext {
			return t
		}
		if k.Ext != "" && t.Ext == "" {
			t.RefineExtension(k.Ext)
			return t
		}
	}
	t := newTarget(k, sc)
	s.byKey[b] = append(s.byKey[b], t)
	return t
}

// Lookup finds a target by key without creating it.
func (s *Set) Lookup(k Key) (*Target, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.byKey[k.bucket()] {
		if t.Ext == k.Ext || (k.Ext == "" && t.Ext != "") || (k.Ext != "" && t.Ext == "") {
			return t, true
		}
	}
	return nil, false
}

// All returns a snapshot of every interned target, for diagnostics/info
// dumps.
func (s *Set) All() []*Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Target
	for _, list := range s.byKey {
		out = append(out, list...)
	}
	return out
}

// Len reports the number of interned targets.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, list := range s.byKey {
		n += len(list)
	}
	return n
}
