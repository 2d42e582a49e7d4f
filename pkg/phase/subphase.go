package phase

// subphaseFrame holds the saved contents of every worker queue at the
// point a nested phase was pushed.
type subphaseFrame struct {
	saved map[int64][]task
}

// PushPhase suspends the current phase's in-flight task queues so a
// nested operation (e.g. a configure sub-build triggered from within a
// match-phase rule) can run with empty queues of its own, per §4.7's
// allowance for phases to nest across a meta-operation boundary. Returns
// a token to pass to PopPhase.
func (s *Scheduler) PushPhase() *subphaseFrame {
	s.queuesMu.Lock()
	defer s.queuesMu.Unlock()

	frame := &subphaseFrame{saved: make(map[int64][]task, len(s.queues))}
	for gid, q := range s.queues {
		frame.saved[gid] = q.Snapshot()
	}
	return frame
}

// PopPhase restores the task queues saved by the matching PushPhase. Any
// tasks queued during the nested phase are discarded; callers must have
// already Wait()-ed for the nested phase's own task_count to reach zero.
func (s *Scheduler) PopPhase(frame *subphaseFrame) {
	s.queuesMu.Lock()
	defer s.queuesMu.Unlock()

	for gid, saved := range frame.saved {
		if q, ok := s.queues[gid]; ok {
			q.Restore(saved)
		}
	}
}
