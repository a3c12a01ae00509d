package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/adred-codev/netcore/internal/logging"
)

// Disposer is invoked once, when the last of a multi-method task's
// methods finishes, so the caller can release/destroy the task
// (spec.md §4.H).
type Disposer interface {
	Dispose()
}

// DisposerFunc adapts a plain func() to Disposer.
type DisposerFunc func()

func (f DisposerFunc) Dispose() { f() }

// Method is one unit of a multi-method task.
type Method func(w Worker)

// refCountedDisposer wraps a Disposer so the last of N methods to finish
// triggers the actual dispose (spec.md §4.H: "reference-counted
// disposer").
type refCountedDisposer struct {
	remaining atomic.Int32
	inner     Disposer
}

func newRefCountedDisposer(n int, inner Disposer) *refCountedDisposer {
	d := &refCountedDisposer{inner: inner}
	d.remaining.Store(int32(n))
	return d
}

func (d *refCountedDisposer) methodDone() {
	if d.remaining.Add(-1) == 0 && d.inner != nil {
		d.inner.Dispose()
	}
}

type multiTask struct {
	method   Method
	disposer *refCountedDisposer
}

func (t multiTask) Execute(w Worker) {
	defer t.disposer.methodDone()
	t.method(w)
}

// MultiTaskDispatcher is the same shape as TaskDispatcher, but Perform
// accepts a task's methods as a unit: either all of them are admitted,
// or none are (spec.md §4.H). It does not retry on overflow — it
// reports failure and the caller keeps ownership of the task.
type MultiTaskDispatcher struct {
	logger      logging.Logger
	maxOverflow int

	mu              sync.Mutex
	cond            *sync.Cond
	queue           []Task
	awaitingWorkers int
	workerShouldEnd []*workerState
	wg              sync.WaitGroup
}

// NewMultiTaskDispatcher constructs and starts workerCount workers.
func NewMultiTaskDispatcher(workerCount, maxOverflow int, logger logging.Logger) *MultiTaskDispatcher {
	d := &MultiTaskDispatcher{logger: logger, maxOverflow: maxOverflow}
	d.cond = sync.NewCond(&d.mu)
	for i := 0; i < workerCount; i++ {
		ws := &workerState{}
		d.workerShouldEnd = append(d.workerShouldEnd, ws)
		d.wg.Add(1)
		go d.worker(ws)
	}
	return d
}

func (d *MultiTaskDispatcher) worker(ws *workerState) {
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

func (d *MultiTaskDispatcher) execute(task Task, ws *workerState) {
	defer d.logger.RecoverPanic("dispatch.MultiTaskDispatcher", nil)
	task.Execute(ws)
}

// Perform admits task's methods atomically: either all len(methods)
// slots fit within the current admission budget, or none are enqueued.
func (d *MultiTaskDispatcher) Perform(disposer Disposer, methods ...Method) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue)+len(methods) > d.awaitingWorkers+d.maxOverflow {
		return false
	}
	rc := newRefCountedDisposer(len(methods), disposer)
	for _, m := range methods {
		d.queue = append(d.queue, multiTask{method: m, disposer: rc})
	}
	d.cond.Broadcast()
	return true
}

// QueueDepth reports the number of methods currently queued.
func (d *MultiTaskDispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Stop sets every worker's termination flag, wakes them all, and joins.
func (d *MultiTaskDispatcher) Stop() {
	d.mu.Lock()
	for _, ws := range d.workerShouldEnd {
		ws.terminate = true
	}
	d.cond.Broadcast()
	d.mu.Unlock()
	d.wg.Wait()
}
