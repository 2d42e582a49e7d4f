package driver

import (
	"errors"
	"testing"

	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/phase"
	"github.com/nimbuild/nimbuild/pkg/rule"
	"github.com/nimbuild/nimbuild/pkg/scope"
	"github.com/nimbuild/nimbuild/pkg/target"
	"github.com/nimbuild/nimbuild/pkg/ttype"
	"github.com/stretchr/testify/assert"
)

func newDriverFixture() (*Driver, *target.Target, action.Action) {
	tree := scope.NewTree()
	set := target.NewSet()
	exe := &ttype.Type{Name: "exe"}
	tgt := set.Intern(target.Key{Type: exe, OutDir: "out", Name: "hello"}, tree.Global())

	reg := rule.NewRegistry()
	var ran int
	reg.Register(tree.Global(), action.MetaPerform.ID, action.OpUpdate.ID, exe, "", &rule.Rule{
		Name: "exe.link",
		Match: func(a action.Action, t *target.Target, hint string) (any, bool) { return nil, true },
		Apply: func(a action.Action, t *target.Target, result any) (target.Recipe, error) {
			return func(a action.Action, t *target.Target) (target.ExecResult, error) {
				ran++
				return target.ResultChanged, nil
			}, nil
		},
	})

	sched := phase.NewScheduler(4, 8)
	sched.Begin()
	d := New(reg, sched)
	a := action.New(action.MetaPerform, nil, action.OpUpdate)
	return d, tgt, a
}

func TestDriverMatchThenExecute(t *testing.T) {
	d, tgt, a := newDriverFixture()

	err := d.Match(a, tgt)
	assert.NoError(t, err)
	assert.Equal(t, target.Applied, tgt.Slot(a).TaskCount.Load())

	res, err := d.Execute(a, tgt)
	assert.NoError(t, err)
	assert.Equal(t, target.ResultChanged, res)
	assert.Equal(t, target.Executed, tgt.Slot(a).TaskCount.Load())
}

func TestDriverMatchIsIdempotent(t *testing.T) {
	d, tgt, a := newDriverFixture()
	assert.NoError(t, d.Match(a, tgt))
	assert.NoError(t, d.Match(a, tgt))
}

func TestDriverExecuteContentionWaitsForResult(t *testing.T) {
	d, tgt, a := newDriverFixture()
	assert.NoError(t, d.Match(a, tgt))

	slot := tgt.Slot(a)
	assert.True(t, slot.TaskCount.CAS(target.Applied, target.Executing))

	done := make(chan struct{})
	go func() {
		res, err := d.Execute(a, tgt)
		assert.NoError(t, err)
		assert.Equal(t, target.ResultChanged, res)
		close(done)
	}()

	slot.TaskCount.Store(target.Executed)
	slot.Finish(target.ResultChanged, nil)
	<-done
}

func TestDriverExecutePrerequisitesPropagatesFailure(t *testing.T) {
	tree := scope.NewTree()
	set := target.NewSet()
	exe := &ttype.Type{Name: "exe"}
	obj := &ttype.Type{Name: "obj"}

	bad := set.Intern(target.Key{Type: obj, OutDir: "out", Name: "bad"}, tree.Global())
	good := set.Intern(target.Key{Type: obj, OutDir: "out", Name: "good"}, tree.Global())
	parent := set.Intern(target.Key{Type: exe, OutDir: "out", Name: "hello"}, tree.Global())

	reg := rule.NewRegistry()
	reg.Register(tree.Global(), action.MetaPerform.ID, action.OpUpdate.ID, obj, "", &rule.Rule{
		Name:  "obj.compile",
		Match: func(a action.Action, t *target.Target, hint string) (any, bool) { return nil, true },
		Apply: func(a action.Action, t *target.Target, result any) (target.Recipe, error) {
			return func(a action.Action, t *target.Target) (target.ExecResult, error) {
				if t.Name == "bad" {
					return target.ResultFailed, errors.New("compile failed")
				}
				return target.ResultChanged, nil
			}, nil
		},
	})

	sched := phase.NewScheduler(4, 8)
	sched.Begin()
	d := New(reg, sched)
	a := action.New(action.MetaPerform, nil, action.OpUpdate)

	assert.NoError(t, d.Match(a, bad))
	assert.NoError(t, d.Match(a, good))
	parent.SetResolvedPrerequisites(a, []*target.Target{bad, good})

	err := d.ExecutePrerequisites(a, parent, false)
	assert.Error(t, err)
}

func TestLockManagerDetectsCycle(t *testing.T) {
	tree := scope.NewTree()
	set := target.NewSet()
	exe := &ttype.Type{Name: "exe"}
	tgt := set.Intern(target.Key{Type: exe, OutDir: "out", Name: "hello"}, tree.Global())

	lm := NewLockManager()
	release, err := lm.Lock(tgt)
	assert.NoError(t, err)

	_, err = lm.Lock(tgt)
	assert.Error(t, err)
	_, ok := err.(*CycleError)
	assert.True(t, ok)

	release()
}

func TestResolveExtraSpecDirectiveForms(t *testing.T) {
	paths, err := resolveExtraSpec("/out/hello.o", "-.d")
	assert.NoError(t, err)
	assert.Equal(t, []string{"/out/hello.d"}, paths)

	paths, err = resolveExtraSpec("/out/hello.tar.gz", "--.txt")
	assert.NoError(t, err)
	assert.Equal(t, []string{"/out/hello.txt"}, paths)

	paths, err = resolveExtraSpec("anything", "/abs/path")
	assert.NoError(t, err)
	assert.Equal(t, []string{"/abs/path"}, paths)
}
