package threads

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/requester"
)

func TestWorkerRunsOnceAndJoins(t *testing.T) {
	var ran atomic.Bool
	w := NewWorker("w", logging.Noop(), func() { ran.Store(true) })
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !w.Join(clock.FromDuration(time.Second).Limit()) {
		t.Fatalf("Join timed out")
	}
	if !ran.Load() {
		t.Fatalf("worker function did not run")
	}
	if w.IsRunning() {
		t.Fatalf("worker should not be running after it exits")
	}
}

func TestRequesterThreadTerminationRoundTrip(t *testing.T) {
	req := requester.New()
	rt := NewRequesterThread("rt", logging.Noop(), req, clock.FromDuration(20*time.Millisecond), nil, nil)
	if err := rt.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	id := req.SendRequest(requester.TerminationRequest{})
	resp, ok := req.AwaitResponse(id, clock.FromDuration(time.Second).Limit())
	if !ok {
		t.Fatalf("AwaitResponse timed out")
	}
	if _, ok := resp.(requester.OkResponse); !ok {
		t.Fatalf("expected OkResponse, got %v", resp)
	}
	if !rt.Join(clock.FromDuration(time.Second).Limit()) {
		t.Fatalf("Join timed out after termination")
	}
}

func TestRequesterThreadPingPong(t *testing.T) {
	req := requester.New()
	rt := NewRequesterThread("rt", logging.Noop(), req, clock.FromDuration(10*time.Millisecond), nil, nil)
	if err := rt.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		rt.AppointTermination()
		rt.Join(clock.FromDuration(time.Second).Limit())
	}()

	id := req.SendRequest(requester.PingRequest{})
	resp, ok := req.AwaitResponse(id, clock.FromDuration(time.Second).Limit())
	if !ok {
		t.Fatalf("AwaitResponse timed out")
	}
	if _, ok := resp.(requester.PongResponse); !ok {
		t.Fatalf("expected PongResponse, got %v", resp)
	}
}

func TestOscillatorTicksCallDoLoadOncePerInterval(t *testing.T) {
	var ticks atomic.Int32
	osc := NewOscillator("osc", logging.Noop(), nil, clock.FromDuration(15*time.Millisecond),
		func(prev, next clock.Timestamp, ticksExpired int) bool {
			ticks.Add(1)
			return ticks.Load() < 3
		}, nil)
	if err := osc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !osc.Join(clock.FromDuration(2 * time.Second).Limit()) {
		t.Fatalf("oscillator did not stop itself after do_load returned false")
	}
	if ticks.Load() != 3 {
		t.Fatalf("expected exactly 3 ticks, got %d", ticks.Load())
	}
}

func TestOscillatorAppointTerminationStops(t *testing.T) {
	osc := NewOscillator("osc", logging.Noop(), nil, clock.FromDuration(10*time.Millisecond),
		func(prev, next clock.Timestamp, ticksExpired int) bool { return true }, nil)
	if err := osc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	osc.AppointTermination()
	if !osc.Join(clock.FromDuration(time.Second).Limit()) {
		t.Fatalf("oscillator did not stop after AppointTermination")
	}
}
