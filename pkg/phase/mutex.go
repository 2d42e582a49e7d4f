package phase

import (
	"sync"

	"github.com/petermattis/goid"
	"github.com/sasha-s/go-deadlock"
)

// Mutex is the tri-mutex of §4.7/§5: exactly one phase is active
// globally, tracked by three per-phase counters. A phase_lock may be
// nested within a goroutine: the first acquisition is "owning" and
// counts against the mutex; subsequent acquisitions by the same
// goroutine are "referencing" and are free, letting a task queued by a
// parent holding the lock acquire its own nested lock without
// double-counting.
//
// If a load fails while holding the phase lock, the mutex is marked
// failed; later Lock calls still perform the requested transition but
// report the failure so callers can unwind cleanly.
type Mutex struct {
	mu     deadlock.Mutex
	cond   *sync.Cond
	counts [numPhases]int
	failed bool

	generation uint64

	// loadExclusive serializes non-island-append load-phase work: only
	// one goroutine may hold it at a time.
	loadExclusive deadlock.Mutex

	owners map[int64]int
}

// NewMutex constructs a ready-to-use phase mutex.
func NewMutex() *Mutex {
	m := &Mutex{owners: make(map[int64]int)}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Lock enters phase p, blocking until the other two phases have drained
// to zero (unless this goroutine already holds a phase lock, in which
// case the acquisition is a free nested "reference"). Returns whether
// this acquisition owns the phase slot (false means nested) and whether
// the mutex is in a post-load-failure state.
func (m *Mutex) Lock(p Phase) (owning bool, ok bool) {
	gid := goid.Get()

	m.mu.Lock()
	defer m.mu.Unlock()

	if depth := m.owners[gid]; depth > 0 {
		m.owners[gid] = depth + 1
		return false, !m.failed
	}

	for m.otherPhasesActive(p) {
		m.cond.Wait()
	}
	m.counts[p]++
	m.owners[gid] = 1
	return true, !m.failed
}

// Unlock releases a lock acquired by Lock. owning must be the value
// returned by the matching Lock call.
func (m *Mutex) Unlock(p Phase, owning bool) {
	gid := goid.Get()

	m.mu.Lock()
	defer m.mu.Unlock()

	depth := m.owners[gid]
	if depth <= 1 {
		delete(m.owners, gid)
	} else {
		m.owners[gid] = depth - 1
	}

	if !owning {
		return
	}
	m.counts[p]--
	if m.counts[p] == 0 {
		m.generation++
		m.cond.Broadcast()
	}
}

func (m *Mutex) otherPhasesActive(p Phase) bool {
	for ph, c := range m.counts {
		if Phase(ph) != p && c > 0 {
			return true
		}
	}
	return false
}

// MarkFailed records that a load phase failed while holding the phase
// lock. Subsequent Lock and Unlock calls still perform their transitions,
// and Lock reports ok=false, letting surviving goroutines unwind without observing
// partially constructed state.
func (m *Mutex) MarkFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = true
	m.cond.Broadcast()
}

// Failed reports whether the mutex has been marked failed.
func (m *Mutex) Failed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

// Generation returns the current load_generation counter, incremented on
// every phase transition; island-append creators record this to validate
// references later.
func (m *Mutex) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// LockLoadExclusive serializes the (non-island-append) load phase: only
// one goroutine may hold it at a time. Callers must already hold a Load
// phase lock.
func (m *Mutex) LockLoadExclusive() { m.loadExclusive.Lock() }

// UnlockLoadExclusive releases LockLoadExclusive.
func (m *Mutex) UnlockLoadExclusive() { m.loadExclusive.Unlock() }

// Active returns the current count for phase p, for diagnostics/tests.
func (m *Mutex) Active(p Phase) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[p]
}
