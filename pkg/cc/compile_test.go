package cc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/depdb"
	"github.com/nimbuild/nimbuild/pkg/driver"
	"github.com/nimbuild/nimbuild/pkg/phase"
	"github.com/nimbuild/nimbuild/pkg/rule"
	"github.com/nimbuild/nimbuild/pkg/scope"
	"github.com/nimbuild/nimbuild/pkg/target"
	"github.com/nimbuild/nimbuild/pkg/ttype"
	"github.com/stretchr/testify/assert"
)

// fakeToolchain never shells out; it reports a fixed make-rule and writes
// a placeholder object file, so the restart loop can be exercised without
// a real compiler.
type fakeToolchain struct {
	rule      string
	compiled  int
	checksum  string
}

func (f *fakeToolchain) Checksum(ctx context.Context) (string, error) { return f.checksum, nil }

func (f *fakeToolchain) EmitMakeRule(ctx context.Context, src string) (string, error) {
	return f.rule, nil
}

func (f *fakeToolchain) Compile(ctx context.Context, src, obj string, extraFlags []string) error {
	f.compiled++
	return os.WriteFile(obj, []byte("object"), 0o644)
}

func TestCompileRecipeExtractsHeaderAndCompiles(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "hello.cxx")
	objPath := filepath.Join(dir, "hello.o")
	hdrPath := filepath.Join(dir, "hello.hxx")
	assert.NoError(t, os.WriteFile(srcPath, []byte("source"), 0o644))
	assert.NoError(t, os.WriteFile(hdrPath, []byte("header"), 0o644))

	tree := scope.NewTree()
	set := target.NewSet()
	cxxType := &ttype.Type{Name: "cxx"}
	objType := &ttype.Type{Name: "obj"}
	hxxType := &ttype.Type{Name: "hxx"}

	srcTgt := set.Intern(target.Key{Type: cxxType, OutDir: dir, Name: "hello", Ext: "cxx"}, tree.Global())
	srcTgt.SetPath(srcPath)

	objTgt := set.Intern(target.Key{Type: objType, OutDir: dir, Name: "hello", Ext: "o"}, tree.Global())
	objTgt.SetPath(objPath)
	objTgt.AddPrerequisite(target.NewPrerequisite(objTgt, "", cxxType, dir, dir, "hello", "cxx", target.IncludeTrue))
	objTgt.Prerequisites()[0].SetResolved(srcTgt)

	reg := rule.NewRegistry()
	hxxAction := action.New(action.MetaPerform, nil, action.OpUpdate)
	reg.Register(tree.Global(), action.MetaPerform.ID, action.OpUpdate.ID, hxxType, "", &rule.Rule{
		Name:  "hxx.noop",
		Match: func(a action.Action, t *target.Target, hint string) (any, bool) { return nil, true },
		Apply: func(a action.Action, t *target.Target, result any) (target.Recipe, error) {
			return func(a action.Action, t *target.Target) (target.ExecResult, error) {
				return target.ResultUnchanged, nil
			}, nil
		},
	})

	sched := phase.NewScheduler(2, 4)
	sched.Begin()
	d := driver.New(reg, sched)

	tc := &fakeToolchain{rule: fmt.Sprintf("hello.o: %s %s", srcPath, hdrPath), checksum: "fake-1"}

	cr := &CompileRule{
		Driver:     d,
		Set:        set,
		Toolchain:  tc,
		SourceType: cxxType,
		HeaderType: hxxType,
		ExtMap:     map[string]*ttype.Type{"hxx": hxxType},
		PrefixMap:  depdb.NewPrefixMap(dir, dir, nil),
		Action:     hxxAction,
	}

	res, err := cr.recipe(hxxAction, objTgt)
	assert.NoError(t, err)
	assert.Equal(t, target.ResultChanged, res)
	assert.Equal(t, 1, tc.compiled)

	depPath := objPath + ".d"
	rec, err := depdb.Read(depPath)
	assert.NoError(t, err)
	assert.Equal(t, "fake-1", rec.Checksum)
	assert.Contains(t, rec.Headers, hdrPath)
}

// A compiler reports a not-yet-existing auto-generated header as a
// relative path under the -I prefix it was included with. When that
// prefix spans more than one directory component (e.g. <mylib/detail/
// gen.hxx> found via a project-root -I), PrefixMap.Resolve must locate
// it via the target's own out-base leaf path, not just the header's
// immediate parent directory name (§4.9 step 5, §8 scenario 2).
func TestCompileRecipeResolvesRelativeMultiComponentHeaderViaPrefixMap(t *testing.T) {
	root := t.TempDir()
	outBase := filepath.Join(root, "mylib", "detail")
	assert.NoError(t, os.MkdirAll(outBase, 0o755))

	srcPath := filepath.Join(outBase, "impl.cxx")
	objPath := filepath.Join(outBase, "impl.o")
	assert.NoError(t, os.WriteFile(srcPath, []byte("source"), 0o644))

	tree := scope.NewTree()
	set := target.NewSet()
	cxxType := &ttype.Type{Name: "cxx"}
	objType := &ttype.Type{Name: "obj"}
	hxxType := &ttype.Type{Name: "hxx"}

	srcTgt := set.Intern(target.Key{Type: cxxType, OutDir: outBase, Name: "impl", Ext: "cxx"}, tree.Global())
	srcTgt.SetPath(srcPath)

	objTgt := set.Intern(target.Key{Type: objType, OutDir: outBase, Name: "impl", Ext: "o"}, tree.Global())
	objTgt.SetPath(objPath)
	objTgt.AddPrerequisite(target.NewPrerequisite(objTgt, "", cxxType, outBase, outBase, "impl", "cxx", target.IncludeTrue))
	objTgt.Prerequisites()[0].SetResolved(srcTgt)

	reg := rule.NewRegistry()
	hxxAction := action.New(action.MetaPerform, nil, action.OpUpdate)
	reg.Register(tree.Global(), action.MetaPerform.ID, action.OpUpdate.ID, hxxType, "", &rule.Rule{
		Name:  "hxx.noop",
		Match: func(a action.Action, t *target.Target, hint string) (any, bool) { return nil, true },
		Apply: func(a action.Action, t *target.Target, result any) (target.Recipe, error) {
			return func(a action.Action, t *target.Target) (target.ExecResult, error) {
				return target.ResultUnchanged, nil
			}, nil
		},
	})

	sched := phase.NewScheduler(2, 4)
	sched.Begin()
	d := driver.New(reg, sched)

	// The make rule reports the generated header by the relative path it
	// was included with, "mylib/detail/gen.hxx", not an absolute location,
	// since it doesn't exist on disk yet.
	tc := &fakeToolchain{rule: fmt.Sprintf("impl.o: %s mylib/detail/gen.hxx", srcPath), checksum: "fake-2"}

	cr := &CompileRule{
		Driver:     d,
		Set:        set,
		Toolchain:  tc,
		SourceType: cxxType,
		HeaderType: hxxType,
		ExtMap:     map[string]*ttype.Type{"hxx": hxxType},
		PrefixMap:  depdb.NewPrefixMap(root, outBase, []string{root}),
		Action:     hxxAction,
	}

	res, err := cr.recipe(hxxAction, objTgt)
	assert.NoError(t, err)
	assert.Equal(t, target.ResultChanged, res)

	depPath := objPath + ".d"
	rec, err := depdb.Read(depPath)
	assert.NoError(t, err)
	assert.Contains(t, rec.Headers, filepath.Join(outBase, "gen.hxx"))
}
