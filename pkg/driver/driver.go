package driver

import (
	"sync/atomic"
	"time"

	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/phase"
	"github.com/nimbuild/nimbuild/pkg/rule"
	"github.com/nimbuild/nimbuild/pkg/target"
	"github.com/nimbuild/nimbuild/pkg/ttype"
	"github.com/samber/lo"
)

// Driver ties the rule matcher, the scheduler, and per-target locking
// into the match/execute operations meta-operations drive after load
// completes.
type Driver struct {
	Registry  *rule.Registry
	Locks     *LockManager
	Sched     *phase.Scheduler
	KeepGoing bool
}

// New constructs a driver over the given rule registry and scheduler.
func New(reg *rule.Registry, sched *phase.Scheduler) *Driver {
	return &Driver{Registry: reg, Locks: NewLockManager(), Sched: sched}
}

// Match implements §4.8 step-by-step: a cache check, a target lock, the
// rule matcher, and recipe binding, ending in the Applied task-count
// state. Returns nil if the target was already matched for a.
func (d *Driver) Match(a action.Action, t *target.Target) error {
	slot := t.Slot(a)
	if slot.TaskCount.Load() >= target.Applied {
		return nil
	}

	release, err := d.Locks.Lock(t)
	if err != nil {
		return err
	}
	defer release()

	if slot.TaskCount.Load() >= target.Applied {
		return nil
	}
	slot.TaskCount.CAS(target.Unmatched, target.BusyMatched)

	outcome, err := rule.Match(d.Registry, a, t, "")
	if err != nil {
		slot.TaskCount.Store(target.Failed)
		return err
	}
	if _, err := rule.Bind(a, t, outcome); err != nil {
		slot.TaskCount.Store(target.Failed)
		return err
	}
	slot.TaskCount.Store(target.Applied)
	return nil
}

// MatchAsync starts an asynchronous match on the scheduler; the caller
// later synchronizes by calling Match on the same (a, t), which will
// either see the cached Applied state or block on the target lock until
// the async match completes.
func (d *Driver) MatchAsync(a action.Action, t *target.Target) bool {
	var tc int32
	return d.Sched.Async(&tc, func() { d.Match(a, t) })
}

// MatchDelegate re-enters the matcher from within a rule's Apply to
// resolve a delegate rule (e.g. install composing over update) without
// touching the target's dependents counter or task-count state; the
// caller is responsible for what it does with the returned outcome.
func (d *Driver) MatchDelegate(a action.Action, t *target.Target) (*rule.Outcome, error) {
	return rule.Match(d.Registry, a, t, "")
}

// MatchInner binds the inner-operation rule (the action with its outer
// operation cleared) from within an outer-operation rule's Apply, so the
// outer rule's recipe can later ExecuteInner to run it.
func (d *Driver) MatchInner(a action.Action, t *target.Target) (*rule.Outcome, error) {
	return rule.Match(d.Registry, a.Unconditional(), t, "")
}

// ExecuteInner runs a recipe bound via MatchInner, as a step inside an
// outer rule's own recipe.
func (d *Driver) ExecuteInner(a action.Action, t *target.Target, out *rule.Outcome) (target.ExecResult, error) {
	recipe, err := out.Rule.Apply(a.Unconditional(), t, out.Result)
	if err != nil {
		return target.ResultFailed, err
	}
	return recipe(a.Unconditional(), t)
}

// Execute implements §4.8's execute: dependents bookkeeping for
// last-mode operations, a CAS-guarded recipe run (contenders wait on the
// slot's Done channel), result normalization (postponed -> unchanged,
// group -> defer to the group's own result), and waiter release.
func (d *Driver) Execute(a action.Action, t *target.Target) (target.ExecResult, error) {
	slot := t.Slot(a)
	if op := a.Inner; op != nil && op.Mode == action.ModeLast {
		if remaining := slot.DecDependents(); remaining > 0 {
			return target.ResultPostponed, nil
		}
	}
	return d.runOrWait(a, t, slot)
}

// ExecuteDirect is the "side-stepping" variant used during match when a
// recipe needs to materialize a prerequisite file (e.g. a generated
// header) before dependency extraction can continue: no dependents
// decrement, no postponement.
func (d *Driver) ExecuteDirect(a action.Action, t *target.Target) (target.ExecResult, error) {
	slot := t.Slot(a)
	return d.runOrWait(a, t, slot)
}

func (d *Driver) runOrWait(a action.Action, t *target.Target, slot *target.ActionSlot) (target.ExecResult, error) {
	if slot.TaskCount.CAS(target.Applied, target.Executing) {
		return d.runRecipe(a, t, slot)
	}
	// Already executing or executed elsewhere; wait for the result unless
	// it's already final.
	switch slot.TaskCount.Load() {
	case target.Executed, target.Failed:
	default:
		<-slot.Done()
	}
	res, err := slot.Result()
	if res == target.ResultPostponed {
		res = target.ResultUnchanged
	}
	return res, err
}

func (d *Driver) runRecipe(a action.Action, t *target.Target, slot *target.ActionSlot) (target.ExecResult, error) {
	var res target.ExecResult
	var err error
	if slot.Recipe != nil {
		res, err = slot.Recipe(a, t)
	}
	if err != nil {
		slot.TaskCount.Store(target.Failed)
		slot.Finish(target.ResultFailed, err)
		return target.ResultFailed, err
	}
	if res == target.ResultPostponed {
		res = target.ResultUnchanged
	}
	if res == target.ResultGroup && t.Group != nil {
		gslot := t.Group.Slot(a)
		<-gslot.Done()
		res, err = gslot.Result()
	}
	slot.TaskCount.Store(target.Executed)
	slot.Finish(res, err)
	return res, err
}

// ExecuteAsync schedules Execute on the scheduler, returning whether the
// task was queued to a helper or ran synchronously on the caller.
func (d *Driver) ExecuteAsync(a action.Action, t *target.Target) bool {
	var tc int32
	return d.Sched.Async(&tc, func() { d.Execute(a, t) })
}

// ExecutePrerequisites runs a target's resolved prerequisites through
// ExecuteAsync and waits for them all to settle. straight mode
// (reverse=false) iterates in declaration order, for ModeFirst
// operations; reverse mode iterates back to front, for ModeLast
// operations and for clean. Each prerequisite's "was busy" flag (an
// explicit bool here rather than a tagged pointer, per the design note
// in §9) records whether it was handed to a helper; the flags stay local
// to this call and are not returned to the caller.
func (d *Driver) ExecutePrerequisites(a action.Action, t *target.Target, reverse bool) error {
	order := append([]*target.Target(nil), t.ResolvedPrerequisites(a)...)
	if reverse {
		order = lo.Reverse(order)
	}

	var taskCount int32
	wasBusy := make([]bool, len(order))
	start := atomic.LoadInt32(&taskCount)
	for i, p := range order {
		p := p
		wasBusy[i] = d.Sched.Async(&taskCount, func() { d.Execute(a, p) })
	}
	d.Sched.Wait(&taskCount, start)

	var firstErr error
	for _, p := range order {
		slot := p.Slot(a)
		if _, err := slot.Result(); err != nil && firstErr == nil {
			firstErr = err
			if !d.KeepGoing {
				break
			}
		}
	}
	return firstErr
}

// NewerPrerequisite returns the first resolved prerequisite of the given
// target type whose mtime is strictly after baseline — the workhorse
// behind mtime-driven update recipes (§4.8).
func (d *Driver) NewerPrerequisite(a action.Action, t *target.Target, tt *ttype.Type, baseline time.Time) (*target.Target, bool) {
	return lo.Find(t.ResolvedPrerequisites(a), func(p *target.Target) bool {
		if tt != nil && p.Type != tt {
			return false
		}
		mt, ok := p.Mtime()
		return ok && mt.After(baseline)
	})
}
