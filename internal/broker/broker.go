// Package broker implements spec.md §4.K/L/M: the three TCP message
// connectors built on internal/tcpsocket, internal/fabric, and
// internal/threads. Grounded on ws/internal/shared/server.go's
// component wiring, ws/internal/shared/pump_read.go /
// pump_write.go's receiver/sender task pair, and ws/internal/multi's
// many-connection service shape (loadbalancer.go/shard.go's
// per-connection fan-out, generalized here to arbitrary messages
// instead of WebSocket frames).
package broker

import (
	"time"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/tcpsocket"
)

// DefaultAwaitingConnectionTimeout is the sleep between failed connect
// attempts and after a detected connection abort (spec.md §4.K).
const DefaultAwaitingConnectionTimeout = time.Second

// DefaultListeningInputQueueTimeout bounds a single receive/pop
// iteration in the receiver/sender loops (spec.md §4.K).
const DefaultListeningInputQueueTimeout = 100 * time.Millisecond

// DefaultKeepaliveInterval is how often a connected ListeningConnection
// pings its own sender thread to detect a stalled iteration.
const DefaultKeepaliveInterval = 5 * time.Second

// Codec adapts the wire format to and from application messages. The
// broker variants impose no wire format themselves (spec.md §6); the
// application supplies this pair per connection.
type Codec[T any] struct {
	// Receive reads exactly one message from sock, bounded by deadline.
	// It returns (zero, false, nil) on a clean "nothing yet" timeout.
	Receive func(sock *tcpsocket.Socket, deadline clock.Timestamp) (T, bool, error)
	// Send writes msg to sock until fully sent, returning
	// tcpsocket.ErrConnectionAborted on a broken peer.
	Send func(sock *tcpsocket.Socket, msg T, deadline clock.Timestamp) error
}

// Hooks are the optional lifecycle callbacks spec.md §4.K/L name
// (on_connect_exception, on_receive_message, on_consume_message,
// on_disconnected, ...). Every field may be left nil.
type Hooks[T any] struct {
	OnConnectException   func(err error)
	OnReceiveMessage     func(msg T) bool // filter: false drops the message
	OnConsumeMessage     func(msg T) bool // filter: false drops the message
	OnDisconnected       func(aborted bool)
	OnSenderConnected    func()
	OnReceiverDisconnect func(aborted bool)
	OnSenderDisconnect   func(aborted bool)
}

func (h Hooks[T]) receiveFilter(msg T) bool {
	if h.OnReceiveMessage == nil {
		return true
	}
	return h.OnReceiveMessage(msg)
}

func (h Hooks[T]) consumeFilter(msg T) bool {
	if h.OnConsumeMessage == nil {
		return true
	}
	return h.OnConsumeMessage(msg)
}

func (h Hooks[T]) connectException(err error) {
	if h.OnConnectException != nil {
		h.OnConnectException(err)
	}
}

func (h Hooks[T]) disconnected(aborted bool) {
	if h.OnDisconnected != nil {
		h.OnDisconnected(aborted)
	}
}

// Endpoints bundles the input queue (messages to send) and output bus
// (messages received) a connector reads from and broadcasts to
// (spec.md §4.K: "both are either owned internally or provided
// externally"). A nil field is allocated with defaults.
type Endpoints[T any] struct {
	Input  *fabric.Queue[T]
	Output *fabric.Bus[T]
}

func (e *Endpoints[T]) fill(cloner fabric.Cloner[T]) {
	if e.Input == nil {
		e.Input = fabric.NewQueue[T](fabric.DefaultQueueCapacity)
	}
	if e.Output == nil {
		e.Output = fabric.NewBus[T](cloner)
	}
}

// registry holds the upstream providers a connector's sender subscribes
// its input queue to, and the downstream consumers every received
// message is pushed to, in addition to the output bus (spec.md §4.K).
type registry[T any] struct {
	providers []fabric.Provider[T]
	consumers []fabric.Consumer[T]
}

func (r *registry[T]) deliver(msg T) {
	for _, c := range r.consumers {
		c.Push(msg)
	}
}
