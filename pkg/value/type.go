// Package value implements the typed value and variable system: the
// process-wide variable pool, typed values with append/prepend semantics,
// and the layered override mechanism described for the scope/variable
// system.
package value

// Kind is the tag of a Value's underlying representation.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindString
	KindPath
	KindDir
	KindProjectName
	KindNameList // untyped list of name tokens
	KindList     // list of typed Values
	KindMap      // map[string]Value
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindPath:
		return "path"
	case KindDir:
		return "dir_path"
	case KindProjectName:
		return "project_name"
	case KindNameList:
		return "names"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Type is a named value type. Types may derive from a base type (the same
// mechanism the scope tree uses for target types): a derived type inherits
// the base's Kind unless it overrides it.
type Type struct {
	Name string
	Base *Type
	Kind Kind
}

// Is reports whether t is identical to or derives from other.
func (t *Type) Is(other *Type) bool {
	for cur := t; cur != nil; cur = cur.Base {
		if cur == other {
			return true
		}
	}
	return false
}

func (t *Type) effectiveKind() Kind {
	if t == nil {
		return KindNull
	}
	for cur := t; cur != nil; cur = cur.Base {
		if cur.Kind != KindNull || cur.Base == nil {
			return cur.Kind
		}
	}
	return t.Kind
}

var (
	BoolType    = &Type{Name: "bool", Kind: KindBool}
	IntType     = &Type{Name: "uint64", Kind: KindInt}
	StringType  = &Type{Name: "string", Kind: KindString}
	PathType    = &Type{Name: "path", Kind: KindPath}
	DirType     = &Type{Name: "dir_path", Kind: KindDir}
	ProjectType = &Type{Name: "project_name", Kind: KindProjectName}
	NamesType   = &Type{Name: "names", Kind: KindNameList}
)
