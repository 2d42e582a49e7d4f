// Package ttype defines the runtime target-type descriptor used by both
// the scope tree (C2, which registers types) and the target graph (C3,
// whose targets carry a type). Kept as its own package so scope and
// target need not import one another.
package ttype

// Type is a runtime descriptor for a target type: a small, extensible
// taxonomy represented as a descriptor chain rather than language-level
// inheritance (§9 "Deep inheritance and virtual dispatch").
type Type struct {
	Name string
	Base *Type

	// DefaultExtension is consulted by the default ExtensionHook.
	DefaultExtension string

	// ExtensionHook derives a target's extension from its name when none
	// was specified explicitly. Derived types may override this.
	ExtensionHook func(name string) string

	// Pattern reports whether a name matches this type's naming
	// convention (used by type/pattern-specific variable lookup).
	Pattern func(name string) bool
}

// Extension returns t's extension for the given target name, consulting
// the most-derived ExtensionHook available, defaulting to
// DefaultExtension, and falling back to "unspecified" ("", false)
// otherwise.
func (t *Type) Extension(name string) (ext string, specified bool) {
	for cur := t; cur != nil; cur = cur.Base {
		if cur.ExtensionHook != nil {
			return cur.ExtensionHook(name), true
		}
	}
	for cur := t; cur != nil; cur = cur.Base {
		if cur.DefaultExtension != "" {
			return cur.DefaultExtension, true
		}
	}
	return "", false
}

// InheritanceChain returns t and all of its ancestors, most-derived first,
// the order the matcher walks when resolving type/pattern-specific
// variables and rules (§4.1, §4.5).
func (t *Type) InheritanceChain() []*Type {
	var chain []*Type
	for cur := t; cur != nil; cur = cur.Base {
		chain = append(chain, cur)
	}
	return chain
}

// Derive creates a new type inheriting from base, the "derive_target_type"
// load-time operation (§4.2, §6).
func Derive(name string, base *Type) *Type {
	return &Type{Name: name, Base: base}
}

// Is reports whether t is, or derives from, other.
func (t *Type) Is(other *Type) bool {
	for cur := t; cur != nil; cur = cur.Base {
		if cur == other {
			return true
		}
	}
	return false
}
