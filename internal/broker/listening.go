package broker

import (
	"errors"
	"sync"
	"time"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/requester"
	"github.com/adred-codev/netcore/internal/subsystem"
	"github.com/adred-codev/netcore/internal/tcpsocket"
	"github.com/adred-codev/netcore/internal/threads"
)

// connState is the (receiver, sender) pair's shared state, per the
// table in spec.md §4.L, carried as a threads.State value in a
// threads.FSMOscillator rather than a bare field: transitions are
// driven by connection events (accept, disconnect) via Transition, not
// by a fixed tick, so MakeStep is the identity.
type connState int

const (
	stateIdle connState = iota
	stateListening
	stateConnected
)

func (s connState) MakeStep(limit clock.Timestamp) threads.State { return s }

// ListeningConnection is a single-peer inbound connector (spec.md §4.L):
// its receiver binds/listens/accepts in a loop, and coordinates with its
// sender over a dedicated InterThreadRequester using ConnectRequest /
// DisconnectRequest / TerminationRequest.
type ListeningConnection[T any] struct {
	name   string
	local  tcpsocket.Endpoint
	codec  Codec[T]
	hooks  Hooks[T]
	logger logging.Logger

	awaitingConnectionTimeout  time.Duration
	listeningInputQueueTimeout time.Duration

	endpoints Endpoints[T]
	reg       registry[T]
	coord     *requester.Requester

	keepaliveInterval time.Duration

	mu        sync.Mutex
	listener  *tcpsocket.Socket
	sock      *tcpsocket.Socket
	recvState *threads.FSMOscillator
	sendState *threads.FSMOscillator

	subs       *fabric.SubscriberList[T]
	sendBuffer *fabric.Buffer[T]

	receiver  *threads.Worker
	sender    *threads.RequesterThread
	keepalive *threads.Oscillator
}

// ListeningOption configures a ListeningConnection at construction.
type ListeningOption[T any] func(*ListeningConnection[T])

// WithListeningEndpoints supplies externally-owned endpoints.
func WithListeningEndpoints[T any](e Endpoints[T]) ListeningOption[T] {
	return func(c *ListeningConnection[T]) { c.endpoints = e }
}

// WithListeningHooks attaches lifecycle callbacks.
func WithListeningHooks[T any](h Hooks[T]) ListeningOption[T] {
	return func(c *ListeningConnection[T]) { c.hooks = h }
}

// WithListeningProviders registers upstream providers.
func WithListeningProviders[T any](providers ...fabric.Provider[T]) ListeningOption[T] {
	return func(c *ListeningConnection[T]) { c.reg.providers = append(c.reg.providers, providers...) }
}

// WithListeningConsumers registers downstream consumers.
func WithListeningConsumers[T any](consumers ...fabric.Consumer[T]) ListeningOption[T] {
	return func(c *ListeningConnection[T]) { c.reg.consumers = append(c.reg.consumers, consumers...) }
}

// WithListeningLogger attaches a logger.
func WithListeningLogger[T any](l logging.Logger) ListeningOption[T] {
	return func(c *ListeningConnection[T]) { c.logger = l }
}

// NewListeningConnection builds a ListeningConnection and registers its
// receiver/sender threads with parent.
func NewListeningConnection[T any](parent *subsystem.Subsystem, name string, local tcpsocket.Endpoint, cloner fabric.Cloner[T], codec Codec[T], opts ...ListeningOption[T]) *ListeningConnection[T] {
	c := &ListeningConnection[T]{
		name:                       name,
		local:                      local,
		codec:                      codec,
		logger:                     logging.Noop(),
		awaitingConnectionTimeout:  DefaultAwaitingConnectionTimeout,
		listeningInputQueueTimeout: DefaultListeningInputQueueTimeout,
		keepaliveInterval:          DefaultKeepaliveInterval,
		coord:                      requester.New(),
		recvState:                  threads.NewFSMOscillator(stateIdle),
		sendState:                  threads.NewFSMOscillator(stateIdle),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.endpoints.fill(cloner)
	c.subs = fabric.SubscribeAll(c.reg.providers, c.endpoints.Input)
	c.sendBuffer = fabric.NewBuffer[T]()

	c.receiver = threads.NewWorker(name+"-receiver", c.logger, c.receiveLoop)
	c.sender = threads.NewRequesterThread(name+"-sender", c.logger, c.coord,
		clock.FromDuration(c.listeningInputQueueTimeout), c.onSenderRequest, c.onSenderIdle)
	c.keepalive = threads.NewOscillator(name+"-keepalive", c.logger, nil,
		clock.FromDuration(c.keepaliveInterval), c.sendKeepalivePing, nil)
	parent.AddThread(c.receiver)
	parent.AddThread(c.sender)
	parent.AddThread(c.keepalive)
	return c
}

// Input is the queue messages handed to Send land in.
func (c *ListeningConnection[T]) Input() *fabric.Queue[T] { return c.endpoints.Input }

// Output is the bus every received message is broadcast to.
func (c *ListeningConnection[T]) Output() *fabric.Bus[T] { return c.endpoints.Output }

// Send enqueues msg for the sender thread to deliver.
func (c *ListeningConnection[T]) Send(msg T) bool { return c.endpoints.Input.Push(msg) }

// Stop sends TerminationRequest to the sender only and awaits its
// OkResponse for up to ten listening-input-queue timeouts, then closes
// the listener, any accepted socket, and the provider subscriptions.
// The receiver is sent no TerminationRequest; it stops when
// Subsystem.Stop performs the AppointTermination + Join sequence, which
// remains the outer bound.
func (c *ListeningConnection[T]) Stop() {
	deadline := clock.FromDuration(c.listeningInputQueueTimeout * 10).Limit()
	if id := c.coord.SendRequest(requester.TerminationRequest{}); id != 0 {
		c.coord.AwaitResponse(id, deadline)
	}
	c.mu.Lock()
	if c.listener != nil {
		c.listener.Close()
	}
	if c.sock != nil {
		c.sock.Close()
	}
	c.mu.Unlock()
	c.subs.Close()
}

func (c *ListeningConnection[T]) receiveLoop() {
	ln := tcpsocket.NewUnbound()
	if err := ln.Bind(c.local); err != nil {
		c.logger.Error("broker: listening bind failed", map[string]any{"name": c.name, "error": err.Error()})
		return
	}
	if err := ln.Listen(1); err != nil {
		c.logger.Error("broker: listen failed", map[string]any{"name": c.name, "error": err.Error()})
		ln.Close()
		return
	}
	c.mu.Lock()
	c.listener = ln
	c.recvState.Transition(stateListening)
	c.mu.Unlock()

	for !c.receiver.ShouldTerminate() {
		accepted, err := ln.Accept(clock.FromDuration(c.listeningInputQueueTimeout).Limit())
		if err != nil {
			if errors.Is(err, tcpsocket.ErrConnectionAborted) {
				return // listener closed out from under us: Stop() is in progress
			}
			c.logger.Error("broker: accept error", map[string]any{"name": c.name, "error": err.Error()})
			continue
		}
		if accepted == nil {
			continue // deadline expired, no connection yet
		}

		c.mu.Lock()
		c.sock = accepted
		c.recvState.Transition(stateConnected)
		c.mu.Unlock()
		if id := c.coord.SendRequest(requester.ConnectRequest{}); id != 0 {
			c.coord.AwaitResponse(id, clock.FromDuration(c.listeningInputQueueTimeout*5).Limit())
		}

		c.serveOneConnection(accepted)

		c.mu.Lock()
		c.sock = nil
		c.recvState.Transition(stateListening)
		c.mu.Unlock()
		if id := c.coord.SendRequest(requester.DisconnectRequest{}); id != 0 {
			c.coord.AwaitResponse(id, clock.FromDuration(c.listeningInputQueueTimeout*5).Limit())
		}
		if c.hooks.OnReceiverDisconnect != nil {
			c.hooks.OnReceiverDisconnect(true)
		}
	}
}

// serveOneConnection reads messages from sock until termination or
// abort, delivering each to the output bus and registered consumers.
func (c *ListeningConnection[T]) serveOneConnection(sock *tcpsocket.Socket) {
	for !c.receiver.ShouldTerminate() {
		msg, ok, err := c.codec.Receive(sock, clock.FromDuration(c.listeningInputQueueTimeout).Limit())
		if err != nil {
			if errors.Is(err, tcpsocket.ErrConnectionAborted) {
				return
			}
			c.logger.Error("broker: listening receive error", map[string]any{"name": c.name, "error": err.Error()})
			continue
		}
		if !ok {
			continue
		}
		if !c.hooks.receiveFilter(msg) {
			continue
		}
		c.endpoints.Output.Push(msg)
		c.reg.deliver(msg)
	}
}

// onSenderRequest handles every coord request the sender's
// RequesterThread doesn't dispatch itself (Termination and Ping are
// handled by the RequesterThread framework before this is ever called).
func (c *ListeningConnection[T]) onSenderRequest(pr *requester.PendingRequest) {
	switch pr.Message.(type) {
	case requester.ConnectRequest:
		c.sendState.Transition(stateConnected)
		if c.hooks.OnSenderConnected != nil {
			c.hooks.OnSenderConnected()
		}
	case requester.DisconnectRequest:
		c.sendState.Transition(stateListening)
		if c.hooks.OnSenderDisconnect != nil {
			c.hooks.OnSenderDisconnect(true)
		}
	}
	if pr.ResponseRequired {
		c.coord.SendResponse(requester.OkResponse{})
	}
}

// onSenderIdle runs once per tick the sender's RequesterThread awaits a
// request and times out: it pumps one outgoing message if connected.
func (c *ListeningConnection[T]) onSenderIdle() {
	if c.sendState.Current().(connState) == stateConnected {
		c.pumpOnce(c.sendBuffer)
	}
}

// sendKeepalivePing issues a PingRequest to the sender over coord once
// per keepaliveInterval tick while connected, detecting a sender whose
// RequesterThread has stalled without relying on the socket read/write
// deadlines alone (spec.md §4.G keep-alive).
func (c *ListeningConnection[T]) sendKeepalivePing(prev, next clock.Timestamp, ticksExpired int) bool {
	if c.sendState.Current().(connState) != stateConnected {
		return true
	}
	id := c.coord.SendRequest(requester.PingRequest{})
	if id == 0 {
		return true
	}
	if _, ok := c.coord.AwaitResponse(id, clock.FromDuration(c.listeningInputQueueTimeout*5).Limit()); !ok {
		c.logger.Warn("broker: listening keepalive ping unanswered", map[string]any{"name": c.name})
	}
	return true
}

func (c *ListeningConnection[T]) pumpOnce(buffer *fabric.Buffer[T]) {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return
	}

	if buffer.Len() == 0 {
		c.endpoints.Input.PopAll(buffer, clock.FromDuration(c.listeningInputQueueTimeout).Limit())
		return
	}
	msg, ok := buffer.Pop()
	if !ok {
		return
	}
	if !c.hooks.consumeFilter(msg) {
		return
	}
	if err := c.codec.Send(sock, msg, clock.FromDuration(c.listeningInputQueueTimeout).Limit()); err != nil {
		if errors.Is(err, tcpsocket.ErrConnectionAborted) {
			c.sendState.Transition(stateListening)
			if c.hooks.OnSenderDisconnect != nil {
				c.hooks.OnSenderDisconnect(true)
			}
			return
		}
		c.logger.Error("broker: listening send error", map[string]any{"name": c.name, "error": err.Error()})
	}
}
