// Package waitcond implements spec.md §4.B: a deadline-bounded condition
// variable and the RW-lock used to guard rarely-changing subsystem
// configuration. Grounded on the sync.Mutex/sync.RWMutex usage
// throughout ws/internal/shared/connection.go; no pack repo carries
// a third-party condvar-with-deadline package, so this stays on stdlib
// sync, generalized with a timer-based wakeup.
package waitcond

import (
	"sync"

	"github.com/adred-codev/netcore/internal/clock"
)

// Cond wraps a sync.Mutex with deadline-bounded waiting. It is not a
// sync.Cond: sync.Cond.Wait cannot be bounded by a deadline, so Cond
// signals itself through a per-waiter channel instead, which also makes
// WakeOne unambiguous (exactly one parked waiter is released).
type Cond struct {
	mu      sync.Mutex
	waiters map[int]chan struct{}
	nextID  int
}

// NewCond returns a ready-to-use Cond. The caller drives its own
// locking around the predicate; Cond only owns the wait/wake bookkeeping.
func NewCond() *Cond {
	return &Cond{waiters: make(map[int]chan struct{})}
}

// Wait blocks until WakeOne/WakeAll is called. Like sync.Cond, spurious
// wakeups are possible; callers must re-check their predicate in a loop
// (spec.md §4.B).
func (c *Cond) Wait() {
	c.wait(nil)
}

// WaitDeadline blocks until woken or deadline passes, reporting which.
// woke == false means the deadline expired.
func (c *Cond) WaitDeadline(deadline clock.Timestamp) (woke bool) {
	if deadline.IsZero() {
		c.Wait()
		return true
	}
	remaining := deadline.Sub(clock.Now())
	if remaining.Duration() <= 0 {
		return false
	}
	timer := timeAfter(remaining)
	return c.wait(timer)
}

func (c *Cond) wait(timeout <-chan struct{}) bool {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	ch := make(chan struct{})
	c.waiters[id] = ch
	c.mu.Unlock()

	if timeout == nil {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-timeout:
		c.mu.Lock()
		delete(c.waiters, id)
		c.mu.Unlock()
		return false
	}
}

// WakeOne releases a single waiter, if any are parked.
func (c *Cond) WakeOne() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.waiters {
		delete(c.waiters, id)
		close(ch)
		return
	}
}

// WakeAll releases every currently parked waiter.
func (c *Cond) WakeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.waiters {
		delete(c.waiters, id)
		close(ch)
	}
}

// RWLock guards rarely-changing subsystem configuration: bus/queue
// references, provider/consumer lists (spec.md §5 "runtime_params_rwlock").
// It is a direct alias of sync.RWMutex — fairness is intentionally
// unspecified per spec.md §4.B.
type RWLock = sync.RWMutex
