// Package threads implements spec.md §4.G: the polymorphic Thread
// variants a Subsystem owns — one-shot worker, oscillator, scheduler,
// and the requester-driven base that handles termination and ping.
// Grounded on ws/worker_pool.go's worker() loop (select on a task
// channel vs ctx.Done(), panic-recovery wrapper) generalized into
// reusable run-loop skeletons, and on original_source's
// include/isl/FiniteStateMachine.hxx for the FSM overlay in fsm.go.
package threads

import (
	"sync"
	"sync/atomic"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/logging"
)

// base provides the shared bookkeeping every thread variant needs: a
// trackable is_running flag (spec.md §3: "either trackable... or not"),
// a termination flag, and a join channel closed on exit. Embedding this
// satisfies most of subsystem.Thread; each variant supplies its own
// run loop and Start.
type base struct {
	name      string
	logger    logging.Logger
	running   atomic.Bool
	terminate atomic.Bool
	done      chan struct{}
	startOnce sync.Once
}

func newBase(name string, logger logging.Logger) base {
	return base{name: name, logger: logger, done: make(chan struct{})}
}

// IsRunning reports whether the thread's run loop is currently active.
// Costed as a single atomic load, matching spec.md §3's "for the cost of
// a RW-lock" trackable contract without actually taking a lock.
func (b *base) IsRunning() bool {
	return b.running.Load()
}

// AppointTermination sets the shared termination flag; trackable threads
// observe it at their next suspension point (spec.md §5).
func (b *base) AppointTermination() {
	b.terminate.Store(true)
}

// ShouldTerminate is polled by run loops and by cooperating long-running
// tasks (spec.md §4.H "Worker::should_terminate").
func (b *base) ShouldTerminate() bool {
	return b.terminate.Load()
}

// Join blocks until the run loop exits or deadline expires.
func (b *base) Join(deadline clock.Timestamp) bool {
	if deadline.IsZero() {
		<-b.done
		return true
	}
	remaining := deadline.Sub(clock.Now())
	if remaining.Duration() <= 0 {
		select {
		case <-b.done:
			return true
		default:
			return false
		}
	}
	timer := timeAfter(remaining)
	select {
	case <-b.done:
		return true
	case <-timer:
		return false
	}
}

func (b *base) finish() {
	b.running.Store(false)
	close(b.done)
}
