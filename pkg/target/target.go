package target

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/scope"
	"github.com/nimbuild/nimbuild/pkg/value"
)

// ExecResult is a recipe's (or the driver's) outcome for one execute call.
type ExecResult int

const (
	ResultUnchanged ExecResult = iota
	ResultChanged
	ResultPostponed
	ResultGroup
	ResultFailed
)

func (r ExecResult) String() string {
	switch r {
	case ResultUnchanged:
		return "unchanged"
	case ResultChanged:
		return "changed"
	case ResultPostponed:
		return "postponed"
	case ResultGroup:
		return "group"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Recipe is the callable produced by a rule's Apply, invoked during
// execute.
type Recipe func(a action.Action, t *Target) (ExecResult, error)

// ActionSlot holds everything a target tracks for one side (inner or
// outer) of the current action pair: its task-count/lock state, the bound
// recipe and owning rule, the match result, the dependents counter, and
// match-option flags.
type ActionSlot struct {
	TaskCount  AtomicTaskCount
	Recipe     Recipe
	RuleName   string
	MatchResult any
	Flags      MatchFlags
	Dependents int32 // atomic

	once   sync.Once
	doneCh chan struct{}
	result ExecResult
	err    error
}

func newActionSlot() *ActionSlot {
	return &ActionSlot{doneCh: make(chan struct{})}
}

// Done returns a channel closed once execute has produced a final result.
func (s *ActionSlot) Done() <-chan struct{} { return s.doneCh }

// Finish records the execute outcome and releases waiters. Safe to call
// exactly once per slot.
func (s *ActionSlot) Finish(res ExecResult, err error) {
	s.once.Do(func() {
		s.result = res
		s.err = err
		close(s.doneCh)
	})
}

// Result returns the recorded outcome; only meaningful after Done() is
// closed.
func (s *ActionSlot) Result() (ExecResult, error) { return s.result, s.err }

// IncDependents/DecDependents maintain the dependents counter used by
// ModeLast operations to decide when a target's recipe may finally run.
func (s *ActionSlot) IncDependents() int32 { return atomic.AddInt32(&s.Dependents, 1) }
func (s *ActionSlot) DecDependents() int32 { return atomic.AddInt32(&s.Dependents, -1) }

// Target is identified by (type, out-dir, src-dir, name, extension).
// Target pointers are stable for the life of the build context.
type Target struct {
	Key
	Scope *scope.Scope
	Vars  *value.Store

	mu         sync.Mutex
	extRefined bool

	prereqs  []*Prerequisite
	resolved map[action.Key][]*Target

	slots map[action.Key]*ActionSlot

	// Group membership: Group is set when this target is a member of a
	// group; Members is the ad hoc member chain when this target is
	// itself a group. Explicit group members are instead produced
	// dynamically by the group rule's match and cached in groupView.
	Group   *Target
	Members []*Target

	groupMu       sync.Mutex
	groupResolved bool
	groupView     []*Target

	path    string
	hasPath bool
	mtime   time.Time
	hasMtime bool

	// Dependency-cycle breadcrumbs are not stored on the target: the
	// driver package keeps a per-goroutine lock chain (see pkg/driver).
}

func newTarget(k Key, s *scope.Scope) *Target {
	return &Target{
		Key:      k,
		Scope:    s,
		Vars:     value.NewStore(),
		resolved: make(map[action.Key][]*Target),
		slots:    make(map[action.Key]*ActionSlot),
	}
}

// Slot returns (creating if necessary) this target's ActionSlot for a.
func (t *Target) Slot(a action.Action) *ActionSlot {
	k := a.Key()
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[k]
	if !ok {
		s = newActionSlot()
		t.slots[k] = s
	}
	return s
}

// RefineExtension sets t's extension from "unspecified" to a concrete
// value exactly once. It is an error (ignored by the caller's identity
// bucket, but reported here) to refine to a different value twice.
func (t *Target) RefineExtension(ext string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.extRefined {
		return t.Ext == ext
	}
	t.Ext = ext
	t.extRefined = true
	return true
}

// SetPath assigns the target's path exactly once, during apply().
func (t *Target) SetPath(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasPath {
		t.path = p
		t.hasPath = true
	}
}

func (t *Target) Path() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path, t.hasPath
}

func (t *Target) SetMtime(mt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mtime = mt
	t.hasMtime = true
}

func (t *Target) Mtime() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mtime, t.hasMtime
}

// AddPrerequisite attaches a declared prerequisite to this target, during
// load.
func (t *Target) AddPrerequisite(p *Prerequisite) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prereqs = append(t.prereqs, p)
}

// Prerequisites returns the declared prerequisite list.
func (t *Target) Prerequisites() []*Prerequisite {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Prerequisite(nil), t.prereqs...)
}

// SetResolvedPrerequisites records the resolved prerequisite targets for
// a given action, computed once during that action's match.
func (t *Target) SetResolvedPrerequisites(a action.Action, targets []*Target) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolved[a.Key()] = targets
}

func (t *Target) ResolvedPrerequisites(a action.Action) []*Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolved[a.Key()]
}

// AddAdhocMember links a statically-discovered ad hoc member into t's
// member chain (t must be the group/primary target).
func (t *Target) AddAdhocMember(m *Target) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Members = append(t.Members, m)
	m.Group = t
}
