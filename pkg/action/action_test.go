package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpecificityOrdering(t *testing.T) {
	generic := New(MetaPerform, nil, OpUpdate)
	specific := New(MetaPerform, OpInstall, OpUpdate)
	assert.Less(t, generic.Specificity(), specific.Specificity())
}

func TestUnconditionalDropsOuter(t *testing.T) {
	a := New(MetaPerform, OpInstall, OpUpdate)
	u := a.Unconditional()
	assert.Nil(t, u.Outer)
	assert.Equal(t, OpUpdate, u.Inner)
}

func TestEffectiveOpFollowsDelegate(t *testing.T) {
	a := New(MetaPerform, nil, OpInstall)
	assert.Equal(t, OpUpdate, a.EffectiveOp())
}

func TestString(t *testing.T) {
	a := New(MetaPerform, OpInstall, OpUpdate)
	assert.Equal(t, "perform(update-for-install)", a.String())
}
