package target

// GroupMembers returns the current view of a group's members: the ad hoc
// chain if any were linked statically during load, otherwise whatever an
// explicit group's rule has produced so far (which may be nil, meaning
// "not yet known").
func (t *Target) GroupMembers() []*Target {
	t.groupMu.Lock()
	defer t.groupMu.Unlock()
	if len(t.Members) > 0 {
		return append([]*Target(nil), t.Members...)
	}
	if t.groupResolved {
		return append([]*Target(nil), t.groupView...)
	}
	return nil
}

// SetGroupView records an explicit group's dynamically-discovered member
// list, computed by the group's matching rule.
func (t *Target) SetGroupView(members []*Target) {
	t.groupMu.Lock()
	defer t.groupMu.Unlock()
	t.groupView = members
	t.groupResolved = true
	for _, m := range members {
		m.Group = t
	}
}

// GroupViewResolved reports whether an explicit group's view has been
// computed yet.
func (t *Target) GroupViewResolved() bool {
	t.groupMu.Lock()
	defer t.groupMu.Unlock()
	return t.groupResolved
}

// MemberState pairs a prerequisite-iteration member with a "was busy"
// flag in an ordinary struct rather than in the low bit of a pointer
// (an encoding detail the spec explicitly leaves open, §9).
// Driver.ExecutePrerequisites does not use this type; it keeps its own
// parallel []bool.
type MemberState struct {
	Target   *Target
	WasBusy  bool
}
