package threads

import (
	"fmt"

	"github.com/adred-codev/netcore/internal/logging"
)

// Worker is the one-shot thread variant: it invokes a function once and
// exits (spec.md §4.G, "MemFunThread-equivalent").
type Worker struct {
	base
	fn func()
}

// NewWorker constructs a one-shot Worker running fn on its own goroutine.
func NewWorker(name string, logger logging.Logger, fn func()) *Worker {
	return &Worker{base: newBase(name, logger), fn: fn}
}

// Start launches the worker goroutine. Safe to call only once, per
// spec.md §4.F ("starting a thread that is already running" is an
// InvalidState contract violation).
func (w *Worker) Start() error {
	if w.running.Load() {
		return fmt.Errorf("threads: worker %q already running", w.name)
	}
	w.running.Store(true)
	go func() {
		defer w.finish()
		defer w.logger.RecoverPanic(w.name, nil)
		w.fn()
	}()
	return nil
}
