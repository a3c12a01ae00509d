package threads

import (
	"fmt"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/requester"
)

// SchedulerDoLoadFunc returns the next instant the scheduler should run
// again. If that instant has already passed, the scheduler immediately
// schedules another iteration (spec.md §4.G).
type SchedulerDoLoadFunc func(start, limit clock.Timestamp) clock.Timestamp

// Scheduler is like Oscillator but picks its own next instant instead of
// ticking at a fixed cadence (spec.md §4.G).
type Scheduler struct {
	base
	req    *requester.Requester
	doLoad SchedulerDoLoadFunc
}

// NewScheduler constructs a Scheduler thread.
func NewScheduler(name string, logger logging.Logger, req *requester.Requester, doLoad SchedulerDoLoadFunc) *Scheduler {
	return &Scheduler{base: newBase(name, logger), req: req, doLoad: doLoad}
}

// Start launches the scheduler's run loop.
func (s *Scheduler) Start() error {
	if s.running.Load() {
		return fmt.Errorf("threads: scheduler %q already running", s.name)
	}
	s.running.Store(true)
	go func() {
		defer s.finish()
		defer s.logger.RecoverPanic(s.name, nil)
		s.run()
	}()
	return nil
}

func (s *Scheduler) run() {
	start := clock.Now()
	for !s.ShouldTerminate() {
		next := s.doLoad(start, clock.Now())
		start = clock.Now()
		if !next.Expired() {
			if !s.serviceRequestsUntil(next) {
				return
			}
		}
	}
}

// serviceRequestsUntil drains control requests until limit; returns
// false if termination was observed.
func (s *Scheduler) serviceRequestsUntil(limit clock.Timestamp) bool {
	if s.req == nil {
		sleepFor(limit.Sub(clock.Now()))
		return !s.ShouldTerminate()
	}
	for !s.ShouldTerminate() && !limit.Expired() {
		pr, ok := s.req.AwaitRequest(limit)
		if !ok {
			return !s.ShouldTerminate()
		}
		switch pr.Message.(type) {
		case requester.TerminationRequest:
			if pr.ResponseRequired {
				s.req.SendResponse(requester.OkResponse{})
			}
			s.terminate.Store(true)
			return false
		case requester.PingRequest:
			s.req.SendResponse(requester.PongResponse{})
		}
	}
	return !s.ShouldTerminate()
}
