package target

import (
	"testing"

	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/scope"
	"github.com/nimbuild/nimbuild/pkg/ttype"
	"github.com/stretchr/testify/assert"
)

func TestInternIdentity(t *testing.T) {
	set := NewSet()
	sc := scope.NewTree().Global()
	exeType := &ttype.Type{Name: "exe"}

	a := set.Intern(Key{Type: exeType, OutDir: "out", Name: "hello"}, sc)
	b := set.Intern(Key{Type: exeType, OutDir: "out", Name: "hello"}, sc)
	assert.Same(t, a, b)
}

func TestInternRefinesExtension(t *testing.T) {
	set := NewSet()
	sc := scope.NewTree().Global()
	objType := &ttype.Type{Name: "obj"}

	a := set.Intern(Key{Type: objType, OutDir: "out", Name: "hello"}, sc)
	assert.Equal(t, "", a.Ext)

	b := set.Intern(Key{Type: objType, OutDir: "out", Name: "hello", Ext: "o"}, sc)
	assert.Same(t, a, b)
	assert.Equal(t, "o", a.Ext)
}

func TestDistinctExtensionsAreDistinctTargets(t *testing.T) {
	set := NewSet()
	sc := scope.NewTree().Global()
	hType := &ttype.Type{Name: "h"}

	a := set.Intern(Key{Type: hType, OutDir: "out", Name: "foo", Ext: "h"}, sc)
	b := set.Intern(Key{Type: hType, OutDir: "out", Name: "foo", Ext: "hpp"}, sc)
	assert.NotSame(t, a, b)
}

func TestTaskCountCAS(t *testing.T) {
	var tc AtomicTaskCount
	assert.True(t, tc.CAS(Unmatched, BusyMatched))
	assert.False(t, tc.CAS(Unmatched, BusyMatched))
	assert.Equal(t, BusyMatched, tc.Load())
}

func TestSlotFinishReleasesWaiters(t *testing.T) {
	set := NewSet()
	sc := scope.NewTree().Global()
	exeType := &ttype.Type{Name: "exe"}
	tgt := set.Intern(Key{Type: exeType, OutDir: "out", Name: "hello"}, sc)

	a := action.New(action.MetaPerform, nil, action.OpUpdate)
	slot := tgt.Slot(a)

	done := make(chan struct{})
	go func() {
		<-slot.Done()
		close(done)
	}()

	slot.Finish(ResultChanged, nil)
	<-done

	res, err := slot.Result()
	assert.NoError(t, err)
	assert.Equal(t, ResultChanged, res)
}

func TestAdhocGroupMembership(t *testing.T) {
	set := NewSet()
	sc := scope.NewTree().Global()
	libType := &ttype.Type{Name: "lib"}
	soType := &ttype.Type{Name: "so"}

	group := set.Intern(Key{Type: libType, OutDir: "out", Name: "foo"}, sc)
	member := set.Intern(Key{Type: soType, OutDir: "out", Name: "foo.1"}, sc)
	group.AddAdhocMember(member)

	members := group.GroupMembers()
	assert.Len(t, members, 1)
	assert.Same(t, member, members[0])
	assert.Same(t, group, member.Group)
}
