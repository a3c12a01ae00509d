// Package dispatch implements spec.md §4.H: bounded worker pools with
// overflow accounting and a termination flush, in both single-method
// (TaskDispatcher) and multi-method (MultiTaskDispatcher) flavors.
// Grounded directly on ws/worker_pool.go's WorkerPool — its fixed pool
// of goroutines, buffered task channel, panic-recovery wrapper, and
// "drop + count" overflow policy are the shape spec.md's TaskDispatcher
// distills; MultiTaskDispatcher generalizes it to the "all-or-nothing
// admission of a task plus N methods" rule.
package dispatch

import (
	"sync"

	"github.com/adred-codev/netcore/internal/logging"
)

// Worker is the capability a Task's Execute method receives, so a
// long-running task can cooperatively check for shutdown
// (spec.md §4.H, "Worker::should_terminate").
type Worker interface {
	ShouldTerminate() bool
}

// Task is a unit of work executed by a dispatcher worker.
type Task interface {
	Execute(w Worker)
}

// TaskFunc adapts a plain func(Worker) to the Task interface.
type TaskFunc func(w Worker)

func (f TaskFunc) Execute(w Worker) { f(w) }

// TaskDispatcher is a pool of workerCount goroutines sharing a bounded
// FIFO of Tasks. Perform admits a task only if
// queue.len()+1 <= awaitingWorkers+maxOverflow; otherwise it returns
// false and the caller keeps ownership (spec.md §4.H).
type TaskDispatcher struct {
	logger      logging.Logger
	maxOverflow int

	mu              sync.Mutex
	cond            *sync.Cond
	queue           []Task
	awaitingWorkers int
	workerShouldEnd []*workerState
	wg              sync.WaitGroup
}

type workerState struct {
	terminate bool
}

func (w *workerState) ShouldTerminate() bool { return w.terminate }

// NewTaskDispatcher constructs and starts workerCount worker goroutines.
// maxOverflow is the extra queue depth allowed beyond the number of
// currently idle workers before Perform starts rejecting.
func NewTaskDispatcher(workerCount, maxOverflow int, logger logging.Logger) *TaskDispatcher {
	d := &TaskDispatcher{logger: logger, maxOverflow: maxOverflow}
	d.cond = sync.NewCond(&d.mu)
	for i := 0; i < workerCount; i++ {
		ws := &workerState{}
		d.workerShouldEnd = append(d.workerShouldEnd, ws)
		d.wg.Add(1)
		go d.worker(ws)
	}
	return d
}

func (d *TaskDispatcher) worker(ws *workerState) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !ws.terminate {
			d.awaitingWorkers++
			d.cond.Wait()
			d.awaitingWorkers--
		}
		if len(d.queue) == 0 && ws.terminate {
			d.mu.Unlock()
			return
		}
		task := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.execute(task, ws)
	}
}

func (d *TaskDispatcher) execute(task Task, ws *workerState) {
	defer d.logger.RecoverPanic("dispatch.TaskDispatcher", nil)
	task.Execute(ws)
}

// Perform enqueues task if there is room, reporting whether it was
// admitted.
func (d *TaskDispatcher) Perform(task Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue)+1 > d.awaitingWorkers+d.maxOverflow {
		return false
	}
	d.queue = append(d.queue, task)
	d.cond.Signal()
	return true
}

// QueueDepth reports the number of tasks currently queued.
func (d *TaskDispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Stop sets every worker's termination flag, wakes them all, and joins.
func (d *TaskDispatcher) Stop() {
	d.mu.Lock()
	for _, ws := range d.workerShouldEnd {
		ws.terminate = true
	}
	d.cond.Broadcast()
	d.mu.Unlock()
	d.wg.Wait()
}
