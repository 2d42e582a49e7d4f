// Package driver implements the match/execute driver (C8): the
// recursive matcher, asynchronous executor with postponement, the
// prerequisite-execution helpers, and the shared clean recipe, wired on
// top of pkg/action, pkg/rule, pkg/target, and pkg/phase.
package driver

import (
	"fmt"
	"sync"

	"github.com/nimbuild/nimbuild/pkg/target"
	"github.com/petermattis/goid"
)

// CycleError reports a dependency cycle detected when a goroutine tries
// to lock a target it already holds further up its own chain.
type CycleError struct {
	Target string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected at target %q", e.Target)
}

// LockManager serializes match/execute access to individual targets.
// Locks are acquired in dependency order (parent before children, per
// §5's "Lock discipline") and each goroutine's held-lock chain is
// tracked so a re-entrant lock on a target already in the chain is
// diagnosed as a cycle rather than a self-deadlock.
type LockManager struct {
	mu     sync.Mutex
	cond   *sync.Cond
	owner  map[*target.Target]int64
	chains map[int64][]*target.Target
}

// NewLockManager constructs an empty lock manager.
func NewLockManager() *LockManager {
	lm := &LockManager{
		owner:  make(map[*target.Target]int64),
		chains: make(map[int64][]*target.Target),
	}
	lm.cond = sync.NewCond(&lm.mu)
	return lm
}

// Lock acquires the per-target lock for t, blocking while another
// goroutine holds it. Returns a release function on success, or a
// *CycleError if t is already in the calling goroutine's own chain.
func (lm *LockManager) Lock(t *target.Target) (release func(), err error) {
	gid := goid.Get()

	lm.mu.Lock()
	for _, held := range lm.chains[gid] {
		if held == t {
			lm.mu.Unlock()
			return nil, &CycleError{Target: t.Name}
		}
	}
	for {
		if owner, busy := lm.owner[t]; !busy || owner == gid {
			break
		}
		lm.cond.Wait()
	}
	lm.owner[t] = gid
	lm.chains[gid] = append(lm.chains[gid], t)
	lm.mu.Unlock()

	return func() {
		lm.mu.Lock()
		delete(lm.owner, t)
		if chain := lm.chains[gid]; len(chain) > 0 {
			lm.chains[gid] = chain[:len(chain)-1]
		}
		if len(lm.chains[gid]) == 0 {
			delete(lm.chains, gid)
		}
		lm.cond.Broadcast()
		lm.mu.Unlock()
	}, nil
}
