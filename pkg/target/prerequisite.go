package target

import "github.com/nimbuild/nimbuild/pkg/ttype"

// Include is a prerequisite's include annotation.
type Include int

const (
	IncludeExclude Include = iota // false
	IncludeTrue                   // true
	IncludeAdhoc                  // adhoc
)

// Prerequisite is a key reference plus its owning scope and include
// annotation (C4). Prerequisites are owned by the target that declares
// them and are resolved lazily via Search.
type Prerequisite struct {
	Project string // optional project qualifier; "" means same project
	Type    *ttype.Type
	Dir     string
	Out     string
	Name    string
	Ext     string

	Include Include

	owner *Target

	resolvedOK bool
	resolved   *Target
}

// NewPrerequisite constructs a prerequisite owned by owner.
func NewPrerequisite(owner *Target, project string, typ *ttype.Type, dir, out, name, ext string, inc Include) *Prerequisite {
	return &Prerequisite{
		Project: project,
		Type:    typ,
		Dir:     dir,
		Out:     out,
		Name:    name,
		Ext:     ext,
		Include: inc,
		owner:   owner,
	}
}

// Resolved returns the prerequisite's cached resolution, if Search has
// already run.
func (p *Prerequisite) Resolved() (*Target, bool) {
	return p.resolved, p.resolvedOK
}

// SetResolved caches the result of a successful Search.
func (p *Prerequisite) SetResolved(t *Target) {
	p.resolved = t
	p.resolvedOK = true
}

// SearchHook resolves a same-project prerequisite to a target, given the
// owning target and the interning set to create/look up into. The
// default policy is "look up existing, else create new"; a target type
// may install a different hook via its descriptor in a richer
// implementation — kept as a plain function value here for simplicity.
type SearchHook func(owner *Target, p *Prerequisite, set *Set) (*Target, error)

// ImportHook resolves a project-qualified prerequisite by delegating to
// the (out of scope) package/project import subsystem.
type ImportHook func(owner *Target, p *Prerequisite) (*Target, error)

// DefaultSearch implements "look up existing, else create new" using the
// prerequisite's key fields, refining the owner's working directory
// defaults where the prerequisite didn't specify dir/out.
func DefaultSearch(owner *Target, p *Prerequisite, set *Set) (*Target, error) {
	dir := p.Dir
	if dir == "" {
		dir = owner.SrcDir
	}
	out := p.Out
	if out == "" {
		out = owner.OutDir
	}
	k := Key{Type: p.Type, OutDir: out, SrcDir: dir, Name: p.Name, Ext: p.Ext}
	return set.Intern(k, owner.Scope), nil
}

// Search resolves p to a target, consulting imp for project-qualified
// prerequisites and search otherwise, and caching the result.
func (p *Prerequisite) Search(owner *Target, set *Set, search SearchHook, imp ImportHook) (*Target, error) {
	if t, ok := p.Resolved(); ok {
		return t, nil
	}
	var (
		t   *Target
		err error
	)
	if p.Project != "" && imp != nil {
		t, err = imp(owner, p)
	} else {
		if search == nil {
			search = DefaultSearch
		}
		t, err = search(owner, p, set)
	}
	if err != nil {
		return nil, err
	}
	p.SetResolved(t)
	return t, nil
}

// Member is the "prerequisite_member" abstraction: an iterator element
// that exposes either a declared prerequisite's resolved target, or one
// member of that target's group.
type Member struct {
	Prereq *Prerequisite
	Target *Target
	InGroup bool
}

// Iterator walks a target's prerequisites, transparently expanding any
// prerequisite that resolves to a group into its members.
type Iterator struct {
	prereqs []*Prerequisite
	idx     int

	groupMembers []*Target
	groupIdx     int
	curPrereq    *Prerequisite
}

// NewIterator builds a prerequisite_member iterator over t's declared
// prerequisites; members come from each prerequisite's Resolved target,
// and unresolved prerequisites are skipped.
func NewIterator(prereqs []*Prerequisite) *Iterator {
	return &Iterator{prereqs: prereqs}
}

// Next returns the next member, or ok=false when exhausted.
func (it *Iterator) Next() (Member, bool) {
	for {
		if it.groupMembers != nil && it.groupIdx < len(it.groupMembers) {
			m := it.groupMembers[it.groupIdx]
			it.groupIdx++
			return Member{Prereq: it.curPrereq, Target: m, InGroup: true}, true
		}
		it.groupMembers = nil
		if it.idx >= len(it.prereqs) {
			return Member{}, false
		}
		p := it.prereqs[it.idx]
		it.idx++
		if p.Include == IncludeExclude {
			continue
		}
		tgt, ok := p.Resolved()
		if !ok {
			continue
		}
		if len(tgt.GroupMembers()) > 0 {
			it.curPrereq = p
			it.groupMembers = tgt.GroupMembers()
			it.groupIdx = 0
			continue
		}
		return Member{Prereq: p, Target: tgt}, true
	}
}

// EnterGroup/LeaveGroup allow a caller that already has an Iterator
// positioned at a group-valued member to explicitly expand/collapse it;
// Next() already does this automatically, these are exposed for callers
// that need explicit control.
func (it *Iterator) EnterGroup(g *Target) {
	it.curPrereq = nil
	it.groupMembers = g.GroupMembers()
	it.groupIdx = 0
}

func (it *Iterator) LeaveGroup() {
	it.groupMembers = nil
	it.groupIdx = 0
}
