// Package target implements the target graph (C3): target identity, the
// interning set, ad hoc and explicit group membership, and per-target
// per-action state — together with the prerequisite model (C4), which is
// tightly owned by the target that declares it.
package target

import "github.com/nimbuild/nimbuild/pkg/ttype"

// Key identifies a target by the tuple (type, out-dir, src-dir-or-empty,
// name, optional extension). Two keys that differ only in one having an
// unspecified extension and the other a concrete one hash to the same
// bucket (see Set.Intern).
type Key struct {
	Type   *ttype.Type
	OutDir string
	SrcDir string
	Name   string
	Ext    string // "" means unspecified
}

// bucket is the identity used for the concurrent map: it deliberately
// excludes Ext so a specified and an unspecified extension collide,
// letting Set.Intern refine the stored extension exactly once.
type bucket struct {
	typ    *ttype.Type
	outDir string
	srcDir string
	name   string
}

func (k Key) bucket() bucket {
	return bucket{typ: k.Type, outDir: k.OutDir, srcDir: k.SrcDir, name: k.Name}
}
