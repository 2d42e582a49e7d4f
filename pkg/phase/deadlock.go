package phase

import (
	"context"
	"fmt"
	"time"
)

// DeadlockError is reported by Monitor when a full sampling interval
// passes with no scheduler progress while at least one goroutine is
// parked waiting and none are active, starting, or in an external wait.
type DeadlockError struct {
	Snapshot Snapshot
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("phase: no scheduler progress for one interval (waiting=%d, active=%d, progress=%d)",
		e.Snapshot.Waiting, e.Snapshot.Active, e.Snapshot.Progress)
}

// Monitor watches a Scheduler's progress counter and reports a
// DeadlockError to its callback if the scheduler appears stuck: every
// participating goroutine parked in Wait, nobody active or starting, and
// no external wait in flight to explain the silence.
//
// Mirrors the spirit of the teacher's deadlock.Opts.DeadlockTimeout
// (sasha-s/go-deadlock), applied here to the scheduler's own task graph
// rather than to individual mutex acquisitions.
type Monitor struct {
	s        *Scheduler
	interval time.Duration
	onStuck  func(*DeadlockError)
}

// NewMonitor constructs a deadlock monitor sampling s every interval.
func NewMonitor(s *Scheduler, interval time.Duration, onStuck func(*DeadlockError)) *Monitor {
	return &Monitor{s: s, interval: interval, onStuck: onStuck}
}

// Run samples the scheduler every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	if m.interval <= 0 {
		m.interval = 5 * time.Second
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var lastProgress uint64
	first := true

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := m.s.snapshot()
			stuck := !first &&
				snap.Progress == lastProgress &&
				snap.Waiting > 0 &&
				snap.Active == 0 &&
				snap.Starting == 0 &&
				snap.ExternalWaiting == 0
			lastProgress = snap.Progress
			first = false
			if stuck && m.onStuck != nil {
				m.onStuck(&DeadlockError{Snapshot: snap})
			}
		}
	}
}
