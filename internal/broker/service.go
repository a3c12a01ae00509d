package broker

import (
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/dispatch"
	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/metrics"
	"github.com/adred-codev/netcore/internal/subsystem"
	"github.com/adred-codev/netcore/internal/tcpsocket"
	"github.com/adred-codev/netcore/internal/threads"
)

// DefaultAcceptBacklog is the listen backlog a Service uses, distinct
// from ListeningConnection's single-peer backlog of 1 (spec.md §4.M).
const DefaultAcceptBacklog = 128

// sharedStaff is the per-connection state a Service's receiver/sender
// task pair shares: the accepted socket, per-connection input queue and
// output bus, and a should_terminate flag either task can flip so its
// sibling tears down too (spec.md §4.M).
type sharedStaff[T any] struct {
	sock      *tcpsocket.Socket
	input     *fabric.Queue[T]
	output    *fabric.Bus[T]
	terminate atomic.Bool
}

func (s *sharedStaff[T]) ShouldTerminate() bool { return s.terminate.Load() }

// Service is a many-client async TCP service: an accept loop feeds
// accepted sockets to a dispatch.TaskDispatcher sized at 2 x max_clients
// workers, one receiver task and one sender task per connection
// (spec.md §4.M). Grounded on ws/internal/multi/loadbalancer.go's
// accept-and-dispatch shape, generalized from WebSocket frames to the
// Codec[T] wire adapter every broker variant shares.
type Service[T any] struct {
	name       string
	local      tcpsocket.Endpoint
	codec      Codec[T]
	hooks      Hooks[T]
	logger     logging.Logger
	maxClients int
	backlog    int

	cloner fabric.Cloner[T]
	output *fabric.Bus[T] // global output: every received message, across all connections
	reg    registry[T]

	dispatcher  *dispatch.TaskDispatcher
	acceptor    *threads.Worker
	acceptLimit *rate.Limiter

	mu        sync.Mutex
	listener  *tcpsocket.Socket
	active    int
	staffByID map[uint64]*sharedStaff[T]
	nextID    uint64
}

// ServiceOption configures a Service at construction.
type ServiceOption[T any] func(*Service[T])

// WithServiceHooks attaches lifecycle callbacks, applied per connection.
func WithServiceHooks[T any](h Hooks[T]) ServiceOption[T] {
	return func(s *Service[T]) { s.hooks = h }
}

// WithServiceProviders registers upstream providers every connection's
// input queue subscribes to for its lifetime.
func WithServiceProviders[T any](providers ...fabric.Provider[T]) ServiceOption[T] {
	return func(s *Service[T]) { s.reg.providers = append(s.reg.providers, providers...) }
}

// WithServiceConsumers registers downstream consumers every received
// message (from any connection) is pushed to.
func WithServiceConsumers[T any](consumers ...fabric.Consumer[T]) ServiceOption[T] {
	return func(s *Service[T]) { s.reg.consumers = append(s.reg.consumers, consumers...) }
}

// WithServiceLogger attaches a logger.
func WithServiceLogger[T any](l logging.Logger) ServiceOption[T] {
	return func(s *Service[T]) { s.logger = l }
}

// WithAcceptBacklog overrides DefaultAcceptBacklog.
func WithAcceptBacklog[T any](n int) ServiceOption[T] {
	return func(s *Service[T]) { s.backlog = n }
}

// WithAcceptRateLimit throttles the accept loop to at most ratePerSec
// new connections per second, with bursts up to burst. The limiter is
// consulted after the max_clients admission check, so a connection
// refused for capacity does not use up a token. Grounded on ConnectionRateLimiter
// (internal/shared/limits/connection_rate_limiter.go), narrowed here
// to its global (non-per-IP) limiter.
func WithAcceptRateLimit[T any](ratePerSec float64, burst int) ServiceOption[T] {
	return func(s *Service[T]) { s.acceptLimit = rate.NewLimiter(rate.Limit(ratePerSec), burst) }
}

// NewService builds a Service bounded at maxClients concurrent
// connections (2 x maxClients dispatcher workers) and registers its
// accept-loop thread with parent.
func NewService[T any](parent *subsystem.Subsystem, name string, local tcpsocket.Endpoint, maxClients int, cloner fabric.Cloner[T], codec Codec[T], opts ...ServiceOption[T]) *Service[T] {
	s := &Service[T]{
		name:       name,
		local:      local,
		codec:      codec,
		logger:     logging.Noop(),
		maxClients: maxClients,
		backlog:    DefaultAcceptBacklog,
		cloner:     cloner,
		staffByID:  make(map[uint64]*sharedStaff[T]),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.output = fabric.NewBus[T](cloner)
	s.dispatcher = dispatch.NewTaskDispatcher(2*maxClients, maxClients, s.logger)

	s.acceptor = threads.NewWorker(name+"-acceptor", s.logger, s.acceptLoop)
	parent.AddThread(s.acceptor)
	return s
}

// Output is the bus every message received on any connection is
// broadcast to.
func (s *Service[T]) Output() *fabric.Bus[T] { return s.output }

// ActiveConnections reports the current number of accepted connections.
func (s *Service[T]) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Broadcast enqueues msg on every currently-connected client's input
// queue.
func (s *Service[T]) Broadcast(msg T) {
	s.mu.Lock()
	staff := make([]*sharedStaff[T], 0, len(s.staffByID))
	for _, st := range s.staffByID {
		staff = append(staff, st)
	}
	s.mu.Unlock()
	for _, st := range staff {
		st.input.Push(s.cloner.Clone(msg))
	}
}

func (s *Service[T]) acceptLoop() {
	ln := tcpsocket.NewUnbound()
	if err := ln.Bind(s.local); err != nil {
		s.logger.Error("broker: service bind failed", map[string]any{"name": s.name, "error": err.Error()})
		return
	}
	if err := ln.Listen(s.backlog); err != nil {
		s.logger.Error("broker: service listen failed", map[string]any{"name": s.name, "error": err.Error()})
		ln.Close()
		return
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for !s.acceptor.ShouldTerminate() {
		accepted, err := ln.Accept(clock.FromDuration(DefaultListeningInputQueueTimeout).Limit())
		if err != nil {
			if errors.Is(err, tcpsocket.ErrConnectionAborted) {
				return
			}
			s.logger.Error("broker: service accept error", map[string]any{"name": s.name, "error": err.Error()})
			continue
		}
		if accepted == nil {
			continue
		}

		if s.ActiveConnections() >= s.maxClients {
			accepted.Close()
			continue
		}
		if s.acceptLimit != nil && !s.acceptLimit.Allow() {
			accepted.Close()
			continue
		}
		s.spawnConnection(accepted)
	}
}

func (s *Service[T]) spawnConnection(sock *tcpsocket.Socket) {
	staff := &sharedStaff[T]{
		sock:   sock,
		input:  fabric.NewQueue[T](fabric.DefaultQueueCapacity),
		output: fabric.NewBus[T](s.cloner),
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.staffByID[id] = staff
	s.active++
	active := s.active
	s.mu.Unlock()
	metrics.BrokerActiveConnections.WithLabelValues(s.name).Set(float64(active))

	var wg sync.WaitGroup

	wg.Add(1)
	if !s.dispatcher.Perform(dispatch.TaskFunc(func(w dispatch.Worker) {
		defer wg.Done()
		s.receiveConnection(w, staff)
	})) {
		wg.Done()
		staff.terminate.Store(true)
		metrics.DispatcherOverflowTotal.WithLabelValues(s.name).Inc()
	}

	wg.Add(1)
	if !s.dispatcher.Perform(dispatch.TaskFunc(func(w dispatch.Worker) {
		defer wg.Done()
		s.sendConnection(w, staff)
	})) {
		wg.Done()
		staff.terminate.Store(true)
		metrics.DispatcherOverflowTotal.WithLabelValues(s.name).Inc()
	}

	go func() {
		wg.Wait()
		sock.Close()
		s.mu.Lock()
		delete(s.staffByID, id)
		s.active--
		remaining := s.active
		s.mu.Unlock()
		metrics.BrokerActiveConnections.WithLabelValues(s.name).Set(float64(remaining))
		if s.hooks.OnDisconnected != nil {
			s.hooks.OnDisconnected(true)
		}
	}()
}

func (s *Service[T]) receiveConnection(w dispatch.Worker, staff *sharedStaff[T]) {
	for !w.ShouldTerminate() && !staff.ShouldTerminate() {
		msg, ok, err := s.codec.Receive(staff.sock, clock.FromDuration(DefaultListeningInputQueueTimeout).Limit())
		if err != nil {
			if errors.Is(err, tcpsocket.ErrConnectionAborted) {
				staff.terminate.Store(true)
				return
			}
			s.logger.Error("broker: service receive error", map[string]any{"name": s.name, "error": err.Error()})
			continue
		}
		if !ok {
			continue
		}
		if !s.hooks.receiveFilter(msg) {
			continue
		}
		staff.output.Push(msg)
		s.output.Push(msg)
		s.reg.deliver(msg)
	}
}

func (s *Service[T]) sendConnection(w dispatch.Worker, staff *sharedStaff[T]) {
	subs := fabric.SubscribeAll(s.reg.providers, staff.input)
	defer subs.Close()

	buffer := fabric.NewBuffer[T]()
	for !w.ShouldTerminate() && !staff.ShouldTerminate() {
		if buffer.Len() == 0 {
			staff.input.PopAll(buffer, clock.FromDuration(DefaultListeningInputQueueTimeout).Limit())
			continue
		}
		msg, ok := buffer.Pop()
		if !ok {
			continue
		}
		if !s.hooks.consumeFilter(msg) {
			continue
		}
		if err := s.codec.Send(staff.sock, msg, clock.FromDuration(DefaultListeningInputQueueTimeout).Limit()); err != nil {
			if errors.Is(err, tcpsocket.ErrConnectionAborted) {
				staff.terminate.Store(true)
				return
			}
			s.logger.Error("broker: service send error", map[string]any{"name": s.name, "error": err.Error()})
		}
	}
}

// Stop closes the listener and every live connection, then signals the
// dispatcher to drain (Subsystem.Stop drives the acceptor thread's
// AppointTermination + Join around this).
func (s *Service[T]) Stop() {
	s.mu.Lock()
	ln := s.listener
	staff := make([]*sharedStaff[T], 0, len(s.staffByID))
	for _, st := range s.staffByID {
		staff = append(staff, st)
	}
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, st := range staff {
		st.terminate.Store(true)
		st.sock.Close()
	}
	s.dispatcher.Stop()
}
