// Package subsystem implements spec.md §4.F: the composite hierarchy of
// subsystems whose threads coordinate start/stop, share a clock, and are
// torn down with a bounded join. Grounded on ws/internal/shared/server.go,
// which already hand-rolls exactly this shape — Start/Stop a listener, a
// worker pool, and a Kafka consumer in a fixed order — generalized here
// into a reusable composite so any component (broker, dispatcher,
// bridge) can be a child Subsystem.
package subsystem

import (
	"fmt"
	"sync"
	"time"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/logging"
)

// Thread is the capability a Subsystem needs from anything it owns as a
// worker: start it, ask it to stop, and join it with a deadline. Defined
// here (not in internal/threads) so internal/threads can depend on
// internal/subsystem's Timeout/Ticks configuration without a cycle back
// from subsystem to threads.
type Thread interface {
	Start() error
	AppointTermination()
	Join(deadline clock.Timestamp) bool
	IsRunning() bool
}

// DefaultAwaitResponseTicks is the default tick budget used to compute a
// thread's join deadline on stop (spec.md §3).
const DefaultAwaitResponseTicks = 3

// Subsystem is a lifecycle-managed unit owning Threads and child
// Subsystems (spec.md §3). A Thread belongs to exactly one Subsystem; a
// child Subsystem belongs to exactly one parent — both invariants are
// enforced by Subsystem's own Add methods, which is the only place
// membership is granted.
type Subsystem struct {
	name   string
	logger logging.Logger

	mu       sync.Mutex
	parent   *Subsystem // weak back-reference only; no ownership cycle
	children []*Subsystem
	threads  []Thread
	running  bool

	clockTimeout       clock.Timeout
	awaitResponseTicks int
}

// Option configures a Subsystem at construction.
type Option func(*Subsystem)

// WithClockTimeout overrides the default 100ms clock timeout.
func WithClockTimeout(t clock.Timeout) Option {
	return func(s *Subsystem) { s.clockTimeout = t }
}

// WithAwaitResponseTicks overrides DefaultAwaitResponseTicks.
func WithAwaitResponseTicks(n int) Option {
	return func(s *Subsystem) { s.awaitResponseTicks = n }
}

// WithLogger attaches a logger; defaults to a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Subsystem) { s.logger = l }
}

// New constructs a root Subsystem. Use NewChild to register one under a
// parent.
func New(name string, opts ...Option) *Subsystem {
	s := &Subsystem{
		name:               name,
		logger:             logging.Noop(),
		clockTimeout:       clock.DefaultTimeout,
		awaitResponseTicks: DefaultAwaitResponseTicks,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewChild constructs a Subsystem and registers it under parent
// (spec.md §3: construction registers with the parent).
func NewChild(parent *Subsystem, name string, opts ...Option) *Subsystem {
	child := New(name, append([]Option{
		WithClockTimeout(parent.clockTimeout),
		WithAwaitResponseTicks(parent.awaitResponseTicks),
		WithLogger(parent.logger),
	}, opts...)...)
	parent.addChild(child)
	return child
}

// Name returns the subsystem's name, used in logging.
func (s *Subsystem) Name() string { return s.name }

// ClockTimeout is the subsystem's configured clock timeout.
func (s *Subsystem) ClockTimeout() clock.Timeout { return s.clockTimeout }

// JoinDeadlineTimeout is clock_timeout x await_response_ticks, the
// bound used when joining a thread on stop (spec.md §4.F, default 300ms).
func (s *Subsystem) JoinDeadlineTimeout() clock.Timeout {
	ticks := s.awaitResponseTicks
	if ticks <= 0 {
		ticks = DefaultAwaitResponseTicks
	}
	return clock.FromDuration(s.clockTimeout.Duration() * time.Duration(ticks))
}

func (s *Subsystem) addChild(child *Subsystem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	child.parent = s
	s.children = append(s.children, child)
}

// AddThread registers t with the Subsystem in insertion order. Must be
// called before Start.
func (s *Subsystem) AddThread(t Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = append(s.threads, t)
}

// Parent returns the weak back-reference to the owning Subsystem, or nil
// at the root.
func (s *Subsystem) Parent() *Subsystem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parent
}

// IsRunning reports whether Start has completed without a matching Stop.
func (s *Subsystem) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start starts all threads in insertion order, then all child subsystems
// in insertion order — depth-first post-order for children as a whole
// tree, so that thread-provided services are available to children on
// start (spec.md §3, §4.F invariant).
func (s *Subsystem) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("subsystem %q: already running", s.name)
	}
	threads := append([]Thread(nil), s.threads...)
	children := append([]*Subsystem(nil), s.children...)
	s.mu.Unlock()

	for i, t := range threads {
		if err := t.Start(); err != nil {
			s.stopThreads(threads[:i])
			return fmt.Errorf("subsystem %q: start thread %d: %w", s.name, i, err)
		}
	}
	for i, c := range children {
		if err := c.Start(); err != nil {
			s.stopChildren(children[:i])
			s.stopThreads(threads)
			return fmt.Errorf("subsystem %q: start child %q: %w", s.name, c.name, err)
		}
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	return nil
}

// Stop reverses Start: children stop first, then threads (spec.md §4.F).
// Each thread's AppointTermination is called, then it is joined with a
// deadline of clock_timeout x await_response_ticks; a join timeout is
// logged as an error (killing is not specified, spec.md §4.F).
func (s *Subsystem) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	children := append([]*Subsystem(nil), s.children...)
	threads := append([]Thread(nil), s.threads...)
	s.running = false
	s.mu.Unlock()

	s.stopChildren(children)
	s.stopThreads(threads)
}

func (s *Subsystem) stopChildren(children []*Subsystem) {
	for i := len(children) - 1; i >= 0; i-- {
		children[i].Stop()
	}
}

func (s *Subsystem) stopThreads(threads []Thread) {
	joinDeadline := s.joinDeadline()
	for i := len(threads) - 1; i >= 0; i-- {
		t := threads[i]
		t.AppointTermination()
		if !t.Join(joinDeadline) {
			s.logger.Error("subsystem: thread join timed out", map[string]any{"subsystem": s.name})
		}
	}
}

func (s *Subsystem) joinDeadline() clock.Timestamp {
	return s.JoinDeadlineTimeout().Limit()
}
