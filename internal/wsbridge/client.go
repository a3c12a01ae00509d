// Package wsbridge is a second outbound connector flavor alongside
// internal/broker.ClientConnection (spec.md §4.K), framed as WebSocket
// messages instead of raw bytes. Grounded on the server-side WebSocket
// handling in ws/internal/shared/handlers_ws.go's ws.UpgradeHTTP,
// pump_read.go's wsutil.ReadClientData, and pump_write.go's
// wsutil.WriteServerMessage, generalized to the client side of the
// handshake: gobwas/ws's Dial, and wsutil's ReadServerData /
// WriteClientMessage.
package wsbridge

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/subsystem"
	"github.com/adred-codev/netcore/internal/threads"
)

// DefaultAwaitingConnectionTimeout mirrors broker.DefaultAwaitingConnectionTimeout:
// the sleep between failed dial attempts and after a detected abort.
const DefaultAwaitingConnectionTimeout = time.Second

// Hooks are the WebSocket connector's lifecycle callbacks, narrowed from
// broker.Hooks to the two events this connector's reconnect loop needs.
type Hooks struct {
	OnDialException func(err error)
	OnDisconnected  func(aborted bool)
}

// ClientConnection dials url, performs the client WebSocket handshake,
// and runs a receiver thread (pushing each text frame's payload to its
// output bus) and a sender thread (draining its input queue as text
// frames) — the WebSocket-framed twin of broker.ClientConnection.
type ClientConnection struct {
	name   string
	url    string
	logger logging.Logger
	hooks  Hooks

	awaitingConnectionTimeout time.Duration

	input  *fabric.Queue[[]byte]
	output *fabric.Bus[[]byte]

	mu        sync.Mutex
	conn      io.ReadWriteCloser
	reader    io.Reader // the handshake's buffered reader, which may hold over-read bytes
	connected bool

	receiver *threads.Worker
	sender   *threads.Worker
}

// Option configures a ClientConnection at construction.
type Option func(*ClientConnection)

// WithLogger attaches a logger; defaults to a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(c *ClientConnection) { c.logger = l }
}

// WithHooks attaches lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(c *ClientConnection) { c.hooks = h }
}

// New builds a ClientConnection and registers its receiver/sender
// threads with parent.
func New(parent *subsystem.Subsystem, name string, url string, opts ...Option) *ClientConnection {
	c := &ClientConnection{
		name:                      name,
		url:                       url,
		logger:                    logging.Noop(),
		awaitingConnectionTimeout: DefaultAwaitingConnectionTimeout,
		input:                     fabric.NewQueue[[]byte](fabric.DefaultQueueCapacity),
		output:                    fabric.NewBus[[]byte](byteSliceCloner{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.receiver = threads.NewWorker(name+"-receiver", c.logger, c.receiveLoop)
	c.sender = threads.NewWorker(name+"-sender", c.logger, c.sendLoop)
	parent.AddThread(c.receiver)
	parent.AddThread(c.sender)
	return c
}

// Input is the queue messages handed to Send land in.
func (c *ClientConnection) Input() *fabric.Queue[[]byte] { return c.input }

// Output is the bus every received frame payload is broadcast to.
func (c *ClientConnection) Output() *fabric.Bus[[]byte] { return c.output }

// Send enqueues msg for the sender thread to deliver as a text frame.
func (c *ClientConnection) Send(msg []byte) bool { return c.input.Push(msg) }

func (c *ClientConnection) receiveLoop() {
	for !c.receiver.ShouldTerminate() {
		r, connected := c.currentReader()
		if !connected {
			if err := c.tryDial(); err != nil {
				if c.hooks.OnDialException != nil {
					c.hooks.OnDialException(err)
				}
				time.Sleep(c.awaitingConnectionTimeout)
			}
			continue
		}

		data, op, err := wsutil.ReadServerData(r)
		if err != nil {
			c.teardown(true)
			time.Sleep(c.awaitingConnectionTimeout)
			continue
		}
		switch op {
		case ws.OpText, ws.OpBinary:
			c.output.Push(data)
		case ws.OpClose:
			c.teardown(true)
		}
	}
}

func (c *ClientConnection) sendLoop() {
	buffer := fabric.NewBuffer[[]byte]()
	for !c.sender.ShouldTerminate() {
		conn, connected := c.currentConn()
		if !connected {
			time.Sleep(c.awaitingConnectionTimeout)
			continue
		}
		if buffer.Len() == 0 {
			c.input.PopAll(buffer, clock.FromDuration(100*time.Millisecond).Limit())
			continue
		}
		msg, ok := buffer.Pop()
		if !ok {
			continue
		}
		if err := wsutil.WriteClientMessage(conn, ws.OpText, msg); err != nil {
			c.teardown(true)
			c.logger.Warn("wsbridge: write failed", map[string]any{"name": c.name, "error": err.Error()})
		}
	}
}

func (c *ClientConnection) currentConn() (io.Writer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.connected
}

func (c *ClientConnection) currentReader() (io.Reader, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader, c.connected
}

func (c *ClientConnection) tryDial() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.awaitingConnectionTimeout)
	defer cancel()
	conn, br, _, err := ws.Dial(ctx, c.url)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	// br may have buffered bytes read past the handshake response; if so
	// every subsequent read must go through it rather than conn
	// directly, or those bytes are lost (gobwas/ws's documented caveat
	// for dialers with a non-zero read buffer).
	if br != nil && br.Buffered() > 0 {
		c.reader = br
	} else {
		c.reader = conn
	}
	c.connected = true
	c.mu.Unlock()
	return nil
}

func (c *ClientConnection) teardown(aborted bool) {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.reader = nil
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	if c.hooks.OnDisconnected != nil {
		c.hooks.OnDisconnected(aborted)
	}
}

// Stop closes the underlying connection immediately, unblocking both
// threads' next suspension point; Subsystem.Stop still performs the
// AppointTermination + Join sequence.
func (c *ClientConnection) Stop() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.reader = nil
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// byteSliceCloner deep-copies a []byte so two subscribers never share
// the same backing array (fabric.CopyCloner's shallow slice-header copy
// isn't safe for a mutable []byte payload).
type byteSliceCloner struct{}

func (byteSliceCloner) Clone(msg []byte) []byte {
	out := make([]byte, len(msg))
	copy(out, msg)
	return out
}
