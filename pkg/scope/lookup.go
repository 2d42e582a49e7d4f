package scope

import (
	"github.com/nimbuild/nimbuild/pkg/ttype"
	"github.com/nimbuild/nimbuild/pkg/value"
)

// Lookup is the result of a variable lookup: the value found, whether a
// value was found at all, and the depth at which it was found — a monotone integer used to compare specificity between two
// lookups (§4.1).
type Lookup struct {
	Value value.Value
	Depth int
	Found bool
}

// TargetQuery carries the optional target-type/name and group-type/name
// context FindOriginal consults before falling back to a scope's plain
// variable map.
type TargetQuery struct {
	TargetType  *ttype.Type
	TargetName  string
	GroupType   *ttype.Type
	GroupName   string
}

// FindOriginal walks outward from start implementing §4.1's
// "Lookup — original": at each scope, for each base type in the target
// type's inheritance chain, check the type/pattern-specific map for
// (type, name) then (group-type, group-name), then check the scope's
// plain variable map. VisibilityScope variables stop at start's own
// scope; VisibilityProject variables stop at the root scope; normal
// variables propagate to the global scope.
func FindOriginal(start *Scope, v *value.Variable, q TargetQuery, startDepth int) Lookup {
	depth := startDepth
	for _, s := range start.Ancestors() {
		if v.Visibility == value.VisibilityScope && s != start {
			break
		}

		if q.TargetType != nil {
			for _, tt := range q.TargetType.InheritanceChain() {
				if st, ok := s.LookupTypeSpecific(TypeSpecificKey{Type: tt, Pattern: q.TargetName}); ok {
					if val, ok := st.Get(v); ok {
						return Lookup{Value: val, Depth: depth, Found: true}
					}
				}
				if q.GroupType != nil {
					if st, ok := s.LookupTypeSpecific(TypeSpecificKey{Type: q.GroupType, Pattern: q.GroupName}); ok {
						if val, ok := st.Get(v); ok {
							return Lookup{Value: val, Depth: depth, Found: true}
						}
					}
				}
			}
		}

		if val, ok := s.Vars.Get(v); ok {
			return Lookup{Value: val, Depth: depth, Found: true}
		}

		depth++

		if v.Visibility == value.VisibilityProject && s.IsRoot {
			break
		}
		if s.Parent == nil {
			break
		}
	}
	return Lookup{Found: false, Depth: depth}
}
