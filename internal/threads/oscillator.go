package threads

import (
	"fmt"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/requester"
)

// DoLoadFunc is invoked once per tick interval. Returning false requests
// a graceful stop (spec.md §4.G).
type DoLoadFunc func(prev, next clock.Timestamp, ticksExpired int) bool

// OnOverloadFunc is invoked when the schedule has slipped
// (ticksExpired > 1): now() ran past the next scheduled tick before the
// oscillator could service it (spec.md §4.G).
type OnOverloadFunc func(ticksExpired int)

// Oscillator ticks every clockTimeout, calling DoLoad exactly once per
// tick interval even under catch-up — no attempt is made to replay
// missed ticks (spec.md §4.G invariant). Between ticks it services its
// own requester (termination/ping) up to the next scheduled tick.
type Oscillator struct {
	base
	req          *requester.Requester
	clockTimeout clock.Timeout
	doLoad       DoLoadFunc
	onOverload   OnOverloadFunc
}

// NewOscillator constructs an Oscillator thread.
func NewOscillator(name string, logger logging.Logger, req *requester.Requester, clockTimeout clock.Timeout, doLoad DoLoadFunc, onOverload OnOverloadFunc) *Oscillator {
	return &Oscillator{base: newBase(name, logger), req: req, clockTimeout: clockTimeout, doLoad: doLoad, onOverload: onOverload}
}

// Start launches the oscillator's run loop.
func (o *Oscillator) Start() error {
	if o.running.Load() {
		return fmt.Errorf("threads: oscillator %q already running", o.name)
	}
	o.running.Store(true)
	go func() {
		defer o.finish()
		defer o.logger.RecoverPanic(o.name, nil)
		o.run()
	}()
	return nil
}

func (o *Oscillator) run() {
	prevTick := clock.Now()
	nextTick := prevTick.Add(o.clockTimeout)

	for !o.ShouldTerminate() {
		now := clock.Now()
		ticksExpired := 1
		if now.After(nextTick) {
			elapsed := now.Sub(prevTick).Duration()
			interval := o.clockTimeout.Duration()
			if interval > 0 {
				ticksExpired = int(elapsed/interval) + 1
			}
			if ticksExpired > 1 && o.onOverload != nil {
				o.onOverload(ticksExpired)
			}
		}

		if o.doLoad != nil && !o.doLoad(prevTick, nextTick, ticksExpired) {
			o.terminate.Store(true)
			break
		}

		prevTick = nextTick
		nextTick = prevTick.Add(o.clockTimeout)
		o.serviceRequestsUntil(nextTick)
	}
}

// serviceRequestsUntil drains control requests (termination/ping) for
// the remainder of the current tick interval.
func (o *Oscillator) serviceRequestsUntil(limit clock.Timestamp) {
	if o.req == nil {
		if limit.Expired() {
			return
		}
		remaining := limit.Sub(clock.Now())
		sleepFor(remaining)
		return
	}
	for !o.ShouldTerminate() && !limit.Expired() {
		pr, ok := o.req.AwaitRequest(limit)
		if !ok {
			return
		}
		switch pr.Message.(type) {
		case requester.TerminationRequest:
			if pr.ResponseRequired {
				o.req.SendResponse(requester.OkResponse{})
			}
			o.terminate.Store(true)
			return
		case requester.PingRequest:
			o.req.SendResponse(requester.PongResponse{})
		}
	}
}
