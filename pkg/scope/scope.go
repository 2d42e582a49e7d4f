// Package scope implements the directory-indexed scope tree (C2): a
// hierarchical namespace of variables and target types, built once during
// the load phase and read-only thereafter. Rules are not held by scopes;
// pkg/rule's Registry keys them by scope.
package scope

import (
	"path/filepath"
	"sync"

	"github.com/nimbuild/nimbuild/pkg/diag"
	"github.com/nimbuild/nimbuild/pkg/ttype"
	"github.com/nimbuild/nimbuild/pkg/value"
)

// TypeSpecificKey indexes a scope's target-type/pattern-specific variable
// map: a (target type, name pattern) pair.
type TypeSpecificKey struct {
	Type    *ttype.Type
	Pattern string
}

// Scope is an entry in the directory-keyed scope tree.
type Scope struct {
	Dir    string
	Parent *Scope
	Root   *Scope // the project root this scope belongs to, if any
	IsRoot bool

	// OutPath/SrcPath are set when this scope is a project root.
	OutPath string
	SrcPath string

	Vars *value.Store

	mu            sync.RWMutex
	typeSpecific  map[TypeSpecificKey]*value.Store
	targetTypes   map[string]*ttype.Type
	children      map[string]*Scope
}

func newScope(dir string) *Scope {
	return &Scope{
		Dir:          dir,
		Vars:         value.NewStore(),
		typeSpecific: make(map[TypeSpecificKey]*value.Store),
		targetTypes:  make(map[string]*ttype.Type),
		children:     make(map[string]*Scope),
	}
}

// TypeSpecific returns (creating if necessary) the variable store for the
// given (type, pattern) key in this scope.
func (s *Scope) TypeSpecific(key TypeSpecificKey) *value.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.typeSpecific[key]
	if !ok {
		st = value.NewStore()
		s.typeSpecific[key] = st
	}
	return st
}

// LookupTypeSpecific returns the store for (type, pattern) without
// creating it.
func (s *Scope) LookupTypeSpecific(key TypeSpecificKey) (*value.Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.typeSpecific[key]
	return st, ok
}

// RegisterTargetType adds a target-type descriptor to this scope's
// registry, consulted outward by ResolveTargetType.
func (s *Scope) RegisterTargetType(t *ttype.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetTypes[t.Name] = t
}

// TargetType looks up a target type registered directly on this scope.
func (s *Scope) TargetType(name string) (*ttype.Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targetTypes[name]
	return t, ok
}

// ResolveTargetType walks outward from s to the global scope looking up
// name in each scope's own target-type table (a name lookup only;
// deriving a new type is ttype.Derive, §4.2, §6), returning a diag.ComplexError tagged
// UnknownTargetType if no ancestor has registered it.
func (s *Scope) ResolveTargetType(name string) (*ttype.Type, error) {
	for _, cur := range s.Ancestors() {
		if t, ok := cur.TargetType(name); ok {
			return t, nil
		}
	}
	return nil, diag.New(diag.UnknownTargetType, "target type %q is not registered in scope %q", name, s.Dir)
}

// Ancestors returns s and each outward parent, ending at the global scope.
func (s *Scope) Ancestors() []*Scope {
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	return chain
}

// Tree is the directory-keyed map of scopes, rooted at a global scope that
// is always present.
type Tree struct {
	mu     sync.RWMutex
	global *Scope
	scopes map[string]*Scope
}

// NewTree constructs a tree with just the global scope.
func NewTree() *Tree {
	g := newScope("")
	return &Tree{global: g, scopes: map[string]*Scope{"": g}}
}

// Global returns the tree's global scope.
func (t *Tree) Global() *Scope { return t.global }

func normalize(dir string) string {
	if dir == "" {
		return ""
	}
	return filepath.Clean(dir)
}

// Find returns the most-qualified scope whose directory is a prefix of
// dir, falling back to the global scope.
func (t *Tree) Find(dir string) *Scope {
	dir = normalize(dir)
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.findLocked(dir)
}

func (t *Tree) findLocked(dir string) *Scope {
	best := t.global
	bestLen := -1
	for d, s := range t.scopes {
		if d == "" {
			continue
		}
		if d == dir || isUnder(dir, d) {
			if len(d) > bestLen {
				best = s
				bestLen = len(d)
			}
		}
	}
	return best
}

func isUnder(dir, ancestor string) bool {
	if ancestor == "" {
		return true
	}
	rel, err := filepath.Rel(ancestor, dir)
	if err != nil {
		return false
	}
	return rel == "." || (len(rel) > 0 && rel[0] != '.' && !filepath.IsAbs(rel))
}

// Insert creates (or returns the existing) scope at dir. Only called
// during the load phase (including island-append exclusive loads).
//
// On insertion: the deepest existing ancestor becomes the new scope's
// parent; any existing scope strictly under dir whose parent was that
// same ancestor is re-parented under the new scope; and if root is true,
// any descendant that shared the old root is re-rooted to the new scope.
func (t *Tree) Insert(dir string, root bool) *Scope {
	dir = normalize(dir)
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.scopes[dir]; ok {
		if root && !existing.IsRoot {
			t.upgradeToRoot(existing)
		}
		return existing
	}

	parent := t.findLocked(dir)
	s := newScope(dir)
	s.Parent = parent
	if root {
		s.IsRoot = true
		s.Root = s
	} else {
		s.Root = parent.Root
	}
	t.scopes[dir] = s

	oldRoot := parent.Root
	for d, other := range t.scopes {
		if d == dir || other == s || !isUnder(d, dir) {
			continue
		}
		if other.Parent == parent {
			other.Parent = s
		}
		if root && other.Root == oldRoot {
			other.Root = s
		}
	}
	return s
}

func (t *Tree) upgradeToRoot(s *Scope) {
	oldRoot := s.Root
	s.IsRoot = true
	s.Root = s
	for _, other := range t.scopes {
		if other == s {
			continue
		}
		if other.Root == oldRoot && isUnder(other.Dir, s.Dir) {
			other.Root = s
		}
	}
}
