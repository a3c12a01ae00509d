package threads

import (
	"sync/atomic"

	"github.com/adred-codev/netcore/internal/clock"
)

// State is a finite-state-machine step for an oscillator-driven thread:
// it computes the next state from the current instant (spec.md §4.G,
// original_source's include/isl/FiniteStateMachine.hxx). The state
// pointer is updated atomically before each step so a concurrent reader
// (e.g. metrics) always observes a consistent current state.
type State interface {
	MakeStep(limit clock.Timestamp) State
}

// SchedulerState is the scheduler-flavored variant: a step also picks
// its own next-run Timeout instead of ticking at a fixed cadence.
type SchedulerState interface {
	MakeStep(limit clock.Timestamp) (next State, delay clock.Timeout)
}

// FSMOscillator holds a current State, advancing it once per tick via
// MakeStep. internal/broker.ListeningConnection uses this to express its
// receiver/sender {Idle, Listening, Connected} pair (spec.md §4.L) as an
// explicit State value rather than ad hoc booleans.
type FSMOscillator struct {
	current atomic.Value // State
}

// NewFSMOscillator seeds the machine with an initial state.
func NewFSMOscillator(initial State) *FSMOscillator {
	f := &FSMOscillator{}
	f.current.Store(stateBox{initial})
	return f
}

// stateBox works around atomic.Value requiring a concrete, consistent
// type across Store calls when State is an interface.
type stateBox struct{ s State }

// Current returns the machine's current state.
func (f *FSMOscillator) Current() State {
	return f.current.Load().(stateBox).s
}

// Step advances the machine by one tick, storing (and returning) the new
// state.
func (f *FSMOscillator) Step(limit clock.Timestamp) State {
	cur := f.Current()
	next := cur.MakeStep(limit)
	f.current.Store(stateBox{next})
	return next
}

// Transition forces the machine directly to next, bypassing MakeStep.
// Event-driven FSMs — transitions triggered by an I/O event (a
// connection accepted, a peer disconnecting) rather than a fixed tick —
// use this instead of Step.
func (f *FSMOscillator) Transition(next State) {
	f.current.Store(stateBox{next})
}

// FSMScheduler is the scheduler-flavored overlay: Step also returns the
// delay until the next step should run.
type FSMScheduler struct {
	current atomic.Value // State (as SchedulerState)
}

// NewFSMScheduler seeds the machine with an initial state.
func NewFSMScheduler(initial SchedulerState) *FSMScheduler {
	f := &FSMScheduler{}
	f.current.Store(schedStateBox{initial})
	return f
}

type schedStateBox struct{ s SchedulerState }

// Current returns the machine's current state.
func (f *FSMScheduler) Current() SchedulerState {
	return f.current.Load().(schedStateBox).s
}

// Step advances the machine by one step, returning the new state and the
// delay until it should run again.
func (f *FSMScheduler) Step(limit clock.Timestamp) (SchedulerState, clock.Timeout) {
	cur := f.Current()
	next, delay := cur.MakeStep(limit)
	nextSched, ok := next.(SchedulerState)
	if !ok {
		// A State that isn't also a SchedulerState stays put; this only
		// happens if a caller mixes the two overlays incorrectly.
		nextSched = cur
	}
	f.current.Store(schedStateBox{nextSched})
	return nextSched, delay
}
