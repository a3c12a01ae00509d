package threads

import (
	"fmt"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/requester"
)

// OnRequestFunc is the "virtual hook" subclasses implement to handle any
// request that isn't TerminationRequest/PingRequest (spec.md §4.G).
type OnRequestFunc func(pr *requester.PendingRequest)

// RequesterThread is the run-loop skeleton shared by every subsystem
// worker driven by an InterThreadRequester: it awaits a request each
// tick and dispatches TerminationRequest/PingRequest itself, delegating
// anything else to OnRequest (spec.md §4.G). onIdle, if non-nil, runs
// once per tick that times out without a request — the thread's own
// periodic work (e.g. draining a queue) alongside the requester's
// control traffic.
type RequesterThread struct {
	base
	req       *requester.Requester
	tick      clock.Timeout
	onRequest OnRequestFunc
	onIdle    func()
}

// NewRequesterThread constructs a RequesterThread. tick is the clock
// timeout used to bound each AwaitRequest call.
func NewRequesterThread(name string, logger logging.Logger, req *requester.Requester, tick clock.Timeout, onRequest OnRequestFunc, onIdle func()) *RequesterThread {
	return &RequesterThread{base: newBase(name, logger), req: req, tick: tick, onRequest: onRequest, onIdle: onIdle}
}

// Start launches the run loop.
func (t *RequesterThread) Start() error {
	if t.running.Load() {
		return fmt.Errorf("threads: requester thread %q already running", t.name)
	}
	t.running.Store(true)
	go func() {
		defer t.finish()
		defer t.logger.RecoverPanic(t.name, nil)
		t.run()
	}()
	return nil
}

func (t *RequesterThread) run() {
	for !t.ShouldTerminate() {
		pr, ok := t.req.AwaitRequest(t.tick.Limit())
		if !ok {
			if t.onIdle != nil {
				t.onIdle()
			}
			continue
		}
		switch pr.Message.(type) {
		case requester.TerminationRequest:
			if pr.ResponseRequired {
				t.req.SendResponse(requester.OkResponse{})
			}
			t.terminate.Store(true)
		case requester.PingRequest:
			t.req.SendResponse(requester.PongResponse{})
		default:
			if t.onRequest != nil {
				t.onRequest(pr)
			}
		}
	}
}
