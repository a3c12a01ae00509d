package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adred-codev/netcore/internal/logging"
)

func TestTaskDispatcherExecutesAdmittedTasks(t *testing.T) {
	d := NewTaskDispatcher(2, 4, logging.Noop())
	defer d.Stop()

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		ok := d.Perform(TaskFunc(func(w Worker) {
			defer wg.Done()
			ran.Add(1)
		}))
		if !ok {
			t.Fatalf("task %d should have been admitted", i)
		}
	}
	waitWithTimeout(t, &wg, time.Second)
	if ran.Load() != 5 {
		t.Fatalf("expected 5 tasks to run, got %d", ran.Load())
	}
}

func TestTaskDispatcherRejectsOverflow(t *testing.T) {
	block := make(chan struct{})
	d := NewTaskDispatcher(1, 0, logging.Noop())
	defer func() {
		close(block)
		d.Stop()
	}()

	// Occupy the single worker with a blocked task.
	if !d.Perform(TaskFunc(func(w Worker) { <-block })) {
		t.Fatalf("first task should be admitted")
	}
	time.Sleep(20 * time.Millisecond) // let the worker pick it up

	// With 0 overflow and the one worker busy, the next task is rejected.
	if d.Perform(TaskFunc(func(w Worker) {})) {
		t.Fatalf("second task should overflow and be rejected")
	}
}

func TestMultiTaskDispatcherAdmitsAllOrNothing(t *testing.T) {
	d := NewMultiTaskDispatcher(1, 0, logging.Noop())
	defer d.Stop()

	block := make(chan struct{})
	defer close(block)

	// Saturate the single worker.
	d.Perform(nil, func(w Worker) { <-block })
	time.Sleep(20 * time.Millisecond)

	var disposed atomic.Bool
	ok := d.Perform(DisposerFunc(func() { disposed.Store(true) }),
		func(w Worker) {}, func(w Worker) {})
	if ok {
		t.Fatalf("multi-method perform should be rejected atomically when it would overflow")
	}
	if disposed.Load() {
		t.Fatalf("disposer must not run for a rejected perform")
	}
}

func TestMultiTaskDispatcherDisposesAfterLastMethod(t *testing.T) {
	d := NewMultiTaskDispatcher(2, 4, logging.Noop())
	defer d.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	var disposed atomic.Bool
	ok := d.Perform(DisposerFunc(func() {
		disposed.Store(true)
		wg.Done()
	}), func(w Worker) {}, func(w Worker) {})
	if !ok {
		t.Fatalf("perform should be admitted")
	}
	waitWithTimeout(t, &wg, time.Second)
	if !disposed.Load() {
		t.Fatalf("disposer should run once both methods finished")
	}
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for tasks to complete")
	}
}
