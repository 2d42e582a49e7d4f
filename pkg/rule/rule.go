// Package rule implements the rule registry and matcher (C5): rule
// indexing by meta-operation/operation/target-type with hint-prefix
// disambiguation, ambiguity detection, and recipe binding.
package rule

import (
	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/target"
)

// MatchFunc decides whether rule applies to (a, t) given the
// disambiguation hint, returning an opaque match result on success.
type MatchFunc func(a action.Action, t *target.Target, hint string) (result any, ok bool)

// ApplyFunc is invoked once a rule is uniquely selected; it produces the
// recipe to bind into the target's action slot.
type ApplyFunc func(a action.Action, t *target.Target, result any) (target.Recipe, error)

// Rule is a (match, apply) pair, registered under (meta-op, op,
// target-type, hint-prefix).
type Rule struct {
	Name  string
	Match MatchFunc
	Apply ApplyFunc
}
