package broker

import (
	"errors"
	"sync"
	"time"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/metrics"
	"github.com/adred-codev/netcore/internal/subsystem"
	"github.com/adred-codev/netcore/internal/tcpsocket"
	"github.com/adred-codev/netcore/internal/threads"
)

// ClientConnection is an outbound connector (spec.md §4.K): it dials
// remote, runs a receiver thread that pushes received messages to its
// output bus and to every registered consumer, and a sender thread that
// drains its input queue (plus every registered upstream provider) and
// writes to the socket.
type ClientConnection[T any] struct {
	name   string
	remote tcpsocket.AddrInfo
	codec  Codec[T]
	hooks  Hooks[T]
	logger logging.Logger

	awaitingConnectionTimeout  time.Duration
	listeningInputQueueTimeout time.Duration

	endpoints Endpoints[T]
	reg       registry[T]

	mu        sync.Mutex
	sock      *tcpsocket.Socket
	connected bool

	receiver *threads.Worker
	sender   *threads.Worker
}

// ClientOption configures a ClientConnection at construction.
type ClientOption[T any] func(*ClientConnection[T])

// WithEndpoints supplies externally-owned input/output endpoints
// instead of the defaults ClientConnection allocates.
func WithEndpoints[T any](e Endpoints[T]) ClientOption[T] {
	return func(c *ClientConnection[T]) { c.endpoints = e }
}

// WithHooks attaches lifecycle callbacks.
func WithHooks[T any](h Hooks[T]) ClientOption[T] {
	return func(c *ClientConnection[T]) { c.hooks = h }
}

// WithProviders registers upstream providers the sender subscribes its
// input queue to for the duration of its run loop.
func WithProviders[T any](providers ...fabric.Provider[T]) ClientOption[T] {
	return func(c *ClientConnection[T]) { c.reg.providers = append(c.reg.providers, providers...) }
}

// WithConsumers registers downstream consumers every received message
// is pushed to, in addition to the output bus.
func WithConsumers[T any](consumers ...fabric.Consumer[T]) ClientOption[T] {
	return func(c *ClientConnection[T]) { c.reg.consumers = append(c.reg.consumers, consumers...) }
}

// WithLogger attaches a logger; defaults to a no-op logger.
func WithLogger[T any](l logging.Logger) ClientOption[T] {
	return func(c *ClientConnection[T]) { c.logger = l }
}

// NewClientConnection builds a ClientConnection and registers its
// receiver/sender threads with parent (spec.md §4.F: threads belong to
// exactly one Subsystem).
func NewClientConnection[T any](parent *subsystem.Subsystem, name string, remote tcpsocket.AddrInfo, cloner fabric.Cloner[T], codec Codec[T], opts ...ClientOption[T]) *ClientConnection[T] {
	c := &ClientConnection[T]{
		name:                       name,
		remote:                     remote,
		codec:                      codec,
		logger:                     logging.Noop(),
		awaitingConnectionTimeout:  DefaultAwaitingConnectionTimeout,
		listeningInputQueueTimeout: DefaultListeningInputQueueTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.endpoints.fill(cloner)

	c.receiver = threads.NewWorker(name+"-receiver", c.logger, c.receiveLoop)
	c.sender = threads.NewWorker(name+"-sender", c.logger, c.sendLoop)
	parent.AddThread(c.receiver)
	parent.AddThread(c.sender)
	return c
}

// Input is the queue messages handed to Send land in.
func (c *ClientConnection[T]) Input() *fabric.Queue[T] { return c.endpoints.Input }

// Output is the bus every received message is broadcast to.
func (c *ClientConnection[T]) Output() *fabric.Bus[T] { return c.endpoints.Output }

// Send enqueues msg for the sender thread to deliver.
func (c *ClientConnection[T]) Send(msg T) bool { return c.endpoints.Input.Push(msg) }

func (c *ClientConnection[T]) receiveLoop() {
	for !c.receiver.ShouldTerminate() {
		sock, connected := c.currentSocket()
		if !connected {
			if err := c.tryConnect(); err != nil {
				c.hooks.connectException(err)
				time.Sleep(c.awaitingConnectionTimeout)
			}
			continue
		}

		msg, ok, err := c.codec.Receive(sock, clock.FromDuration(c.listeningInputQueueTimeout).Limit())
		if err != nil {
			if errors.Is(err, tcpsocket.ErrConnectionAborted) {
				c.teardown(true)
				continue
			}
			c.logger.Error("broker: client receive error", map[string]any{"name": c.name, "error": err.Error()})
			continue
		}
		if !ok {
			continue // deadline expired, nothing received
		}
		if !c.hooks.receiveFilter(msg) {
			continue
		}
		c.endpoints.Output.Push(msg)
		c.reg.deliver(msg)
	}
}

func (c *ClientConnection[T]) sendLoop() {
	subs := fabric.SubscribeAll(c.reg.providers, c.endpoints.Input)
	defer subs.Close()

	buffer := fabric.NewBuffer[T]()
	for !c.sender.ShouldTerminate() {
		sock, connected := c.currentSocket()
		if !connected {
			time.Sleep(c.awaitingConnectionTimeout)
			continue
		}

		if buffer.Len() == 0 {
			c.endpoints.Input.PopAll(buffer, clock.FromDuration(c.listeningInputQueueTimeout).Limit())
			continue
		}
		msg, ok := buffer.Pop()
		if !ok {
			continue
		}
		if !c.hooks.consumeFilter(msg) {
			continue
		}
		if err := c.codec.Send(sock, msg, clock.FromDuration(c.listeningInputQueueTimeout).Limit()); err != nil {
			if errors.Is(err, tcpsocket.ErrConnectionAborted) {
				c.teardown(true)
				time.Sleep(c.awaitingConnectionTimeout)
				continue
			}
			c.logger.Error("broker: client send error", map[string]any{"name": c.name, "error": err.Error()})
		}
	}
}

func (c *ClientConnection[T]) currentSocket() (*tcpsocket.Socket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock, c.connected
}

func (c *ClientConnection[T]) tryConnect() error {
	sock := tcpsocket.NewUnbound()
	if err := sock.Connect(c.remote, clock.FromDuration(c.awaitingConnectionTimeout).Limit()); err != nil {
		return err
	}
	c.mu.Lock()
	c.sock = sock
	c.connected = true
	c.mu.Unlock()
	metrics.BrokerReconnectsTotal.WithLabelValues(c.name).Inc()
	return nil
}

func (c *ClientConnection[T]) teardown(aborted bool) {
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.connected = false
	c.mu.Unlock()
	if sock != nil {
		sock.Close()
	}
	c.hooks.disconnected(aborted)
}

// Stop closes the underlying socket immediately, unblocking both
// threads' next suspension point; Subsystem.Stop still performs the
// AppointTermination + Join sequence (spec.md §4.K: "shutdown... after
// their join, the socket is closed").
func (c *ClientConnection[T]) Stop() {
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.connected = false
	c.mu.Unlock()
	if sock != nil {
		sock.Close()
	}
}
