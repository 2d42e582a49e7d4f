package value

import (
	"fmt"
	"strings"
)

// Value is a tagged union carrying an optional type descriptor, mirroring
// the data model's "Value" record: null, bool, int, string, path, dir,
// project name, a list of untyped name tokens, a list of typed values, or
// a string-keyed map.
type Value struct {
	Kind Kind
	Type *Type

	boolVal bool
	intVal  int64
	strVal  string
	list    []Value
	mapVal  map[string]Value
}

// Null returns an untyped null value.
func Null() Value { return Value{Kind: KindNull} }

// NullOfType normalizes an untyped null into a typed null, per the
// documented "null -> typed null" rule.
func NullOfType(t *Type) Value {
	return Value{Kind: KindNull, Type: t}
}

func Bool(b bool) Value   { return Value{Kind: KindBool, Type: BoolType, boolVal: b} }
func Int(i int64) Value   { return Value{Kind: KindInt, Type: IntType, intVal: i} }
func Str(s string) Value  { return Value{Kind: KindString, Type: StringType, strVal: s} }
func Path(p string) Value { return Value{Kind: KindPath, Type: PathType, strVal: p} }
func Dir(p string) Value  { return Value{Kind: KindDir, Type: DirType, strVal: p} }

func Names(names ...string) Value {
	l := make([]Value, len(names))
	for i, n := range names {
		l[i] = Value{Kind: KindString, strVal: n}
	}
	return Value{Kind: KindNameList, Type: NamesType, list: l}
}

func List(t *Type, items ...Value) Value {
	return Value{Kind: KindList, Type: t, list: append([]Value(nil), items...)}
}

func Map(t *Type, m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{Kind: KindMap, Type: t, mapVal: cp}
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) Bool() bool             { return v.boolVal }
func (v Value) Int() int64             { return v.intVal }
func (v Value) String() string         { return v.strVal }
func (v Value) Items() []Value         { return v.list }
func (v Value) MapEntries() map[string]Value { return v.mapVal }

// WithType types an untyped value exactly once; re-typing to a different
// type is an error, per the C1 invariant.
func (v Value) WithType(t *Type) (Value, error) {
	if v.Type == nil {
		v.Type = t
		return v, nil
	}
	if v.Type == t {
		return v, nil
	}
	return Value{}, fmt.Errorf("value already has type %q, cannot re-type to %q", v.Type.Name, t.Name)
}

// Append implements typed append semantics: strings concatenate, lists and
// name-lists concatenate element-wise, maps are shallow-merged (RHS wins on
// key collision), and appending to null yields the operand typed as the
// target's type.
func (v Value) Append(rhs Value) (Value, error) {
	if v.IsNull() {
		out := rhs
		if v.Type != nil {
			var err error
			if out, err = out.WithType(v.Type); err != nil {
				out = rhs
			}
		}
		return out, nil
	}
	switch v.Kind {
	case KindString, KindPath, KindDir:
		return Value{Kind: v.Kind, Type: v.Type, strVal: v.strVal + rhs.strVal}, nil
	case KindNameList, KindList:
		merged := append(append([]Value(nil), v.list...), rhs.list...)
		if rhs.Kind != KindNameList && rhs.Kind != KindList {
			merged = append(merged, rhs)
		}
		return Value{Kind: v.Kind, Type: v.Type, list: merged}, nil
	case KindMap:
		merged := make(map[string]Value, len(v.mapVal)+len(rhs.mapVal))
		for k, val := range v.mapVal {
			merged[k] = val
		}
		for k, val := range rhs.mapVal {
			merged[k] = val
		}
		return Value{Kind: KindMap, Type: v.Type, mapVal: merged}, nil
	case KindInt:
		return Value{Kind: KindInt, Type: v.Type, intVal: v.intVal + rhs.intVal}, nil
	default:
		return Value{}, fmt.Errorf("append not defined for kind %s", v.Kind)
	}
}

// Prepend mirrors Append but for the front of the value.
func (v Value) Prepend(lhs Value) (Value, error) {
	if v.IsNull() {
		out := lhs
		if v.Type != nil {
			var err error
			if out, err = out.WithType(v.Type); err != nil {
				out = lhs
			}
		}
		return out, nil
	}
	switch v.Kind {
	case KindString, KindPath, KindDir:
		return Value{Kind: v.Kind, Type: v.Type, strVal: lhs.strVal + v.strVal}, nil
	case KindNameList, KindList:
		var merged []Value
		if lhs.Kind == KindNameList || lhs.Kind == KindList {
			merged = append(append([]Value(nil), lhs.list...), v.list...)
		} else {
			merged = append([]Value{lhs}, v.list...)
		}
		return Value{Kind: v.Kind, Type: v.Type, list: merged}, nil
	case KindInt:
		return Value{Kind: KindInt, Type: v.Type, intVal: lhs.intVal + v.intVal}, nil
	default:
		return Value{}, fmt.Errorf("prepend not defined for kind %s", v.Kind)
	}
}

// ConvertTo converts v to the target type, failing with a documented error
// if the kinds are incompatible.
func (v Value) ConvertTo(t *Type) (Value, error) {
	if v.IsNull() {
		return NullOfType(t), nil
	}
	wantKind := t.effectiveKind()
	if v.Kind == wantKind {
		out := v
		out.Type = t
		return out, nil
	}
	switch wantKind {
	case KindString, KindPath, KindDir:
		out := v
		out.Kind = wantKind
		out.Type = t
		out.strVal = v.renderString()
		return out, nil
	case KindNameList, KindList:
		return Value{Kind: wantKind, Type: t, list: []Value{v}}, nil
	}
	return Value{}, fmt.Errorf("cannot convert value of kind %s to type %q (kind %s)", v.Kind, t.Name, wantKind)
}

func (v Value) renderString() string {
	switch v.Kind {
	case KindString, KindPath, KindDir:
		return v.strVal
	case KindBool:
		return fmt.Sprintf("%v", v.boolVal)
	case KindInt:
		return fmt.Sprintf("%d", v.intVal)
	case KindNameList, KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.renderString()
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
