package phase

import "sync/atomic"

// monitorCallback fires once every threshold progress-counter ticks,
// letting a caller (diagnostics, a progress indicator) sample scheduler
// throughput without polling on every single task completion.
type monitorCallback struct {
	threshold uint64
	last      uint64
	fn        func(Snapshot)
}

// OnProgress registers fn to run every threshold scheduler-progress
// events (task completions and Wait resumptions combined). Replaces any
// previously registered callback.
func (s *Scheduler) OnProgress(threshold uint64, fn func(Snapshot)) {
	if threshold == 0 {
		threshold = 1
	}
	s.mu.Lock()
	s.cb = &monitorCallback{threshold: threshold, fn: fn}
	s.mu.Unlock()
}

func (s *Scheduler) checkMonitorThreshold() {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb == nil || cb.fn == nil {
		return
	}
	p := atomic.LoadUint64(&s.progress)
	if p-atomic.LoadUint64(&cb.last) >= cb.threshold {
		atomic.StoreUint64(&cb.last, p)
		cb.fn(s.snapshot())
	}
}
