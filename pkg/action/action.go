// Package action implements the meta-operation/operation registry (C6)
// and the packed Action triple that C8's match/execute driver dispatches
// on.
package action

import "fmt"

// Mode is an operation's execution mode: whether prerequisites run before
// (First) or after (Last) the dependents that need them have matched.
type Mode int

const (
	ModeFirst Mode = iota
	ModeLast
)

// MetaOp describes a meta-operation (perform, configure, dist, ...): the
// outer dimension of an Action.
type MetaOp struct {
	ID   int
	Name string

	Load    func() error
	Search  func() error
	Match   func() error
	Execute func() error

	PreHook  func() error
	PostHook func() error
}

// Op describes an operation (update, clean, install, ...): the inner or
// outer dimension of an Action.
type Op struct {
	ID   int
	Name string

	Doing string // present progressive, e.g. "updating"
	Did   string // past tense, e.g. "updated"
	Done  string // past participle, e.g. "up to date"

	Mode Mode

	// Delegate, if set, names another operation this one dispatches to at
	// match time (e.g. "install" delegating into "update").
	Delegate *Op
}

// Action is a packed (meta-operation, outer operation, inner operation)
// triple. Operation 0 in the outer slot means "unconditional inner".
type Action struct {
	Meta  *MetaOp
	Outer *Op
	Inner *Op
}

// New constructs an Action; outer may be nil for "unconditional inner".
func New(meta *MetaOp, outer, inner *Op) Action {
	return Action{Meta: meta, Outer: outer, Inner: inner}
}

// Unconditional returns a copy of a with the outer operation cleared,
// used as the matcher's second attempt (§4.5 step 1).
func (a Action) Unconditional() Action {
	return Action{Meta: a.Meta, Outer: nil, Inner: a.Inner}
}

// Specificity totally orders actions: an action naming both an inner and
// an outer operation is more specific than one naming only the inner
// operation, which is more specific than one naming only the meta-op.
// Composition uses this so a specific match (e.g. perform(update-for-
// install)) overrides a generic one (perform(update)).
func (a Action) Specificity() int {
	score := 0
	if a.Meta != nil {
		score++
	}
	if a.Inner != nil {
		score++
	}
	if a.Outer != nil {
		score++
	}
	return score
}

func (a Action) String() string {
	metaName, outerName, innerName := "?", "-", "?"
	if a.Meta != nil {
		metaName = a.Meta.Name
	}
	if a.Outer != nil {
		outerName = a.Outer.Name
	}
	if a.Inner != nil {
		innerName = a.Inner.Name
	}
	if outerName == "-" {
		return fmt.Sprintf("%s(%s)", metaName, innerName)
	}
	return fmt.Sprintf("%s(%s-for-%s)", metaName, innerName, outerName)
}

// Key is a comparable form of Action suitable for use as a map key (e.g.
// indexing a target's per-action slots or a rule registry).
type Key struct {
	Meta, Outer, Inner int
}

// Key returns a's comparable form. A nil Outer/Inner/Meta encodes as 0,
// which is never a valid registered id (ids start at 1).
func (a Action) Key() Key {
	k := Key{}
	if a.Meta != nil {
		k.Meta = a.Meta.ID
	}
	if a.Outer != nil {
		k.Outer = a.Outer.ID
	}
	if a.Inner != nil {
		k.Inner = a.Inner.ID
	}
	return k
}

// EffectiveOp returns the operation the matcher should key on: the inner
// operation, following its Delegate chain if one is configured.
func (a Action) EffectiveOp() *Op {
	op := a.Inner
	for op != nil && op.Delegate != nil {
		op = op.Delegate
	}
	return op
}

// Registry is the process-global table of meta-operations and operations,
// indexed by id.
type Registry struct {
	metaOps map[int]*MetaOp
	ops     map[int]*Op
}

func NewRegistry() *Registry {
	return &Registry{metaOps: make(map[int]*MetaOp), ops: make(map[int]*Op)}
}

func (r *Registry) RegisterMetaOp(m *MetaOp) { r.metaOps[m.ID] = m }
func (r *Registry) RegisterOp(o *Op)         { r.ops[o.ID] = o }

func (r *Registry) MetaOp(id int) (*MetaOp, bool) { m, ok := r.metaOps[id]; return m, ok }
func (r *Registry) Op(id int) (*Op, bool)         { o, ok := r.ops[id]; return o, ok }

// Well-known operations, analogous to build2's update/clean/install/test.
var (
	OpUpdate  = &Op{ID: 1, Name: "update", Doing: "updating", Did: "updated", Done: "is up to date", Mode: ModeFirst}
	OpClean   = &Op{ID: 2, Name: "clean", Doing: "cleaning", Did: "cleaned", Done: "is clean", Mode: ModeLast}
	OpInstall = &Op{ID: 3, Name: "install", Doing: "installing", Did: "installed", Done: "is installed", Mode: ModeFirst, Delegate: OpUpdate}
	OpDist    = &Op{ID: 4, Name: "dist", Doing: "distributing", Did: "distributed", Done: "is staged", Mode: ModeFirst, Delegate: OpUpdate}
)

// Well-known meta-operations.
var (
	MetaPerform   = &MetaOp{ID: 1, Name: "perform"}
	MetaConfigure = &MetaOp{ID: 2, Name: "configure"}
	MetaDist      = &MetaOp{ID: 3, Name: "dist"}
)
