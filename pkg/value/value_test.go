package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

// valuesEqual compares two Values structurally through their exported
// accessors (Kind/Type are plain fields, the rest are unexported), for
// use as a cmp.Comparer where testify's reflect.DeepEqual-based Equal
// would either panic on go-cmp's stricter default or just report
// "not equal" without a usable diff on a nested list/map mismatch.
func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind || a.Type != b.Type {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.Bool() == b.Bool()
	case KindInt:
		return a.Int() == b.Int()
	case KindString, KindPath, KindDir:
		return a.String() == b.String()
	case KindNameList, KindList:
		return cmp.Equal(a.Items(), b.Items(), cmp.Comparer(valuesEqual))
	case KindMap:
		return cmp.Equal(a.MapEntries(), b.MapEntries(), cmp.Comparer(valuesEqual))
	default:
		return true
	}
}

func TestAppendString(t *testing.T) {
	v := Str("foo")
	out, err := v.Append(Str("bar"))
	assert.NoError(t, err)
	assert.Equal(t, "foobar", out.String())
}

func TestAppendNullTyped(t *testing.T) {
	n := NullOfType(StringType)
	out, err := n.Append(Str("bar"))
	assert.NoError(t, err)
	assert.Equal(t, "bar", out.String())
	assert.Equal(t, StringType, out.Type)
}

func TestAppendList(t *testing.T) {
	l := List(NamesType, Str("a"), Str("b"))
	out, err := l.Append(List(NamesType, Str("c")))
	assert.NoError(t, err)
	assert.Len(t, out.Items(), 3)
}

// Appended lists and maps nest Values inside Values; when one of these
// mismatches, assert.Equal just says "not equal" with an unreadable
// %+v dump of unexported fields. cmp.Diff with a Value-aware Comparer
// points at the element that actually differs.
func TestAppendListDeepEquality(t *testing.T) {
	l := List(NamesType, Str("a"), Str("b"))
	out, err := l.Append(List(NamesType, Str("c")))
	assert.NoError(t, err)

	want := List(NamesType, Str("a"), Str("b"), Str("c"))
	if diff := cmp.Diff(want, out, cmp.Comparer(valuesEqual)); diff != "" {
		t.Errorf("Append result mismatch (-want +got):\n%s", diff)
	}
}

func TestMapAppendMergesEntriesDeepEquality(t *testing.T) {
	m := Map(NamesType, map[string]Value{"a": Str("1")})
	out, err := m.Append(Map(NamesType, map[string]Value{"b": Str("2")}))
	assert.NoError(t, err)

	want := Map(NamesType, map[string]Value{"a": Str("1"), "b": Str("2")})
	if diff := cmp.Diff(want, out, cmp.Comparer(valuesEqual)); diff != "" {
		t.Errorf("map merge mismatch (-want +got):\n%s", diff)
	}
}

func TestWithTypeOnceOnly(t *testing.T) {
	v := Str("x")
	v.Type = nil
	typed, err := v.WithType(StringType)
	assert.NoError(t, err)

	_, err = typed.WithType(PathType)
	assert.Error(t, err)
}

func TestPoolInternIdempotent(t *testing.T) {
	p := NewPool()
	a, err := p.Intern("foo", StringType, VisibilityNormal)
	assert.NoError(t, err)
	b, err := p.Intern("foo", StringType, VisibilityNormal)
	assert.NoError(t, err)
	assert.Same(t, a, b)
}

func TestPoolInternConflict(t *testing.T) {
	p := NewPool()
	_, err := p.Intern("foo", StringType, VisibilityNormal)
	assert.NoError(t, err)
	_, err = p.Intern("foo", PathType, VisibilityNormal)
	assert.Error(t, err)
}

func TestSynthesizeOverridePrefixSuffix(t *testing.T) {
	v := &Variable{Name: "x", Type: StringType}
	original := Str("mid")
	pre := Str("pre-")
	suf := Str("-suf")

	out, err := Synthesize(v, original, []OverrideLevel{
		{Prefix: &pre, Suffix: &suf},
	})
	assert.NoError(t, err)
	assert.Equal(t, "pre-mid-suf", out.String())
}

func TestSynthesizeOverrideStemWins(t *testing.T) {
	v := &Variable{Name: "x", Type: StringType}
	original := Str("original")
	override := Str("replaced")

	out, err := Synthesize(v, original, []OverrideLevel{
		{Override: &override},
	})
	assert.NoError(t, err)
	assert.Equal(t, "replaced", out.String())
}

func TestOverrideCacheMemoizes(t *testing.T) {
	c := NewOverrideCache()
	v := &Variable{Name: "x"}
	calls := 0
	compute := func() (Value, error) {
		calls++
		return Str("computed"), nil
	}

	v1, err := c.GetOrCompute(1, v, compute)
	assert.NoError(t, err)
	v2, err := c.GetOrCompute(1, v, compute)
	assert.NoError(t, err)

	assert.Equal(t, v1.String(), v2.String())
	assert.Equal(t, 1, calls)
}
