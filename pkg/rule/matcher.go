package rule

import (
	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/target"
	"github.com/samber/lo"
)

// Outcome is the result of a successful match: the winning rule and its
// opaque match result, ready for Apply.
type Outcome struct {
	Rule   *Rule
	Result any
}

// Match implements §4.5's match algorithm. If the action names an outer
// operation, it is tried first; on a clean "no rule found" it retries
// with the outer operation cleared ("unconditional inner"). Scopes are
// walked outward from t.Scope, stopping at t.Scope's root and then at the
// global scope; at each scope every ancestor in t.Type's inheritance
// chain is consulted. Two or more matching rules at the same slot is a
// diagnosable ambiguity.
func Match(r *Registry, a action.Action, t *target.Target, hint string) (*Outcome, error) {
	if a.Outer != nil {
		out, err := tryMatch(r, a, t, hint)
		if err == nil {
			return out, nil
		}
		if _, ok := err.(*NotFoundError); !ok {
			return nil, err
		}
		return tryMatch(r, a.Unconditional(), t, hint)
	}
	return tryMatch(r, a, t, hint)
}

func tryMatch(r *Registry, a action.Action, t *target.Target, hint string) (*Outcome, error) {
	op := a.EffectiveOp()
	opID := 0
	if op != nil {
		opID = op.ID
	}
	metaID := 0
	if a.Meta != nil {
		metaID = a.Meta.ID
	}

	pastRoot := false
	for _, sc := range t.Scope.Ancestors() {
		if pastRoot && sc.Parent != nil {
			continue
		}
		if sc.IsRoot {
			pastRoot = true
		}
		for _, tt := range t.Type.InheritanceChain() {
			candidates := r.candidates(sc, metaID, opID, tt, hint)
			if len(candidates) == 0 {
				continue
			}

			matched := lo.FilterMap(candidates, func(rl *Rule, _ int) (Outcome, bool) {
				res, ok := rl.Match(a, t, hint)
				return Outcome{Rule: rl, Result: res}, ok
			})
			if len(matched) == 1 {
				return &matched[0], nil
			}
			if len(matched) > 1 {
				names := lo.Map(matched, func(out Outcome, _ int) string { return out.Rule.Name })
				return nil, &AmbiguousError{Action: a, Target: t.Name, Names: names}
			}
		}
	}
	return nil, &NotFoundError{Action: a, Target: t.Name}
}

// Bind runs rl.Apply and installs the resulting recipe into t's slot for
// a, returning the recipe for the caller (typically the driver, which
// also owns the target lock during this call).
func Bind(a action.Action, t *target.Target, out *Outcome) (target.Recipe, error) {
	recipe, err := out.Rule.Apply(a, t, out.Result)
	if err != nil {
		return nil, err
	}
	slot := t.Slot(a)
	slot.Recipe = recipe
	slot.RuleName = out.Rule.Name
	slot.MatchResult = out.Result
	return recipe, nil
}
