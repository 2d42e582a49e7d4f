package phase

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMutexExcludesOtherPhases(t *testing.T) {
	m := NewMutex()
	owning, ok := m.Lock(Load)
	assert.True(t, owning)
	assert.True(t, ok)
	assert.Equal(t, 1, m.Active(Load))

	done := make(chan struct{})
	go func() {
		m.Lock(Match)
		m.Unlock(Match, true)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("match phase should not have been able to lock while load is active")
	case <-time.After(50 * time.Millisecond):
	}

	m.Unlock(Load, owning)
	<-done
}

func TestMutexNestedLockIsFree(t *testing.T) {
	m := NewMutex()
	owning1, ok := m.Lock(Load)
	assert.True(t, owning1)
	assert.True(t, ok)

	owning2, ok := m.Lock(Load)
	assert.False(t, owning2)
	assert.True(t, ok)
	assert.Equal(t, 1, m.Active(Load))

	m.Unlock(Load, owning2)
	assert.Equal(t, 1, m.Active(Load))
	m.Unlock(Load, owning1)
	assert.Equal(t, 0, m.Active(Load))
}

func TestMutexMarkFailedStillTransitions(t *testing.T) {
	m := NewMutex()
	owning, ok := m.Lock(Load)
	assert.True(t, ok)
	m.MarkFailed()
	m.Unlock(Load, owning)

	owning2, ok2 := m.Lock(Match)
	assert.True(t, owning2)
	assert.False(t, ok2)
	m.Unlock(Match, owning2)
}

func TestQueueLIFOAndMark(t *testing.T) {
	q := NewQueue(4)
	var ran []int
	q.PushBack(task(func() { ran = append(ran, 1) }))
	mark := q.Mark()
	q.PushBack(task(func() { ran = append(ran, 2) }))

	tk, ok := q.PopBack(mark)
	assert.True(t, ok)
	tk()
	assert.Equal(t, []int{2}, ran)

	_, ok = q.PopBack(mark)
	assert.False(t, ok, "pop should refuse to cross below the frame mark")

	tk, ok = q.PopBack(0)
	assert.True(t, ok)
	tk()
	assert.Equal(t, []int{2, 1}, ran)
}

func TestQueueStealFrontIsFIFO(t *testing.T) {
	q := NewQueue(4)
	var ran []int
	q.PushBack(task(func() { ran = append(ran, 1) }))
	q.PushBack(task(func() { ran = append(ran, 2) }))

	tk, ok := q.StealFront()
	assert.True(t, ok)
	tk()
	assert.Equal(t, []int{1}, ran)
}

func TestSchedulerAsyncWait(t *testing.T) {
	s := NewScheduler(4, 8)
	s.Begin()
	defer s.End()

	var taskCount int32
	var sum int32
	start := taskCount

	for i := 0; i < 20; i++ {
		n := int32(i)
		s.Async(&taskCount, func() {
			atomic.AddInt32(&sum, n)
		})
	}
	s.Wait(&taskCount, start)

	assert.Equal(t, int32(190), atomic.LoadInt32(&sum))
	assert.Equal(t, int32(0), atomic.LoadInt32(&taskCount))
}

func TestSchedulerSynchronousFallbackWhenSaturated(t *testing.T) {
	s := NewScheduler(1, 1)
	s.Begin()
	defer s.End()

	var taskCount int32
	var ran bool
	queued := s.Async(&taskCount, func() { ran = true })
	assert.False(t, queued, "with maxActive=1 and the caller already active, no helper capacity remains")
	assert.True(t, ran)
	assert.Equal(t, int32(0), atomic.LoadInt32(&taskCount))
}

func TestSchedulerOnProgressThreshold(t *testing.T) {
	s := NewScheduler(4, 8)
	s.Begin()
	defer s.End()

	var fired int32
	s.OnProgress(5, func(Snapshot) { atomic.AddInt32(&fired, 1) })

	var taskCount int32
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Wait(&taskCount, 0)
	}()

	start := int32(0)
	for i := 0; i < 10; i++ {
		s.Async(&taskCount, func() {})
	}
	s.Wait(&taskCount, start)
	wg.Wait()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&fired), int32(1))
}

func TestSchedulerExternalWaitRuns(t *testing.T) {
	s := NewScheduler(2, 4)
	s.Begin()
	defer s.End()

	ran := false
	s.ExternalWait(func() { ran = true })
	assert.True(t, ran)
	assert.Equal(t, int32(0), atomic.LoadInt32(&s.externalWaiting))
}

func TestPushPopPhaseRoundTrips(t *testing.T) {
	s := NewScheduler(2, 4)
	q := s.queueFor(1)
	q.PushBack(task(func() {}))

	frame := s.PushPhase()
	assert.Equal(t, 0, q.Len())

	q.PushBack(task(func() {}))
	s.PopPhase(frame)
	assert.Equal(t, 1, q.Len())
}
