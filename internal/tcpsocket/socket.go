package tcpsocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/adred-codev/netcore/internal/clock"
)

// State is one of the five socket states from spec.md §3.
type State int

const (
	StateClosed State = iota
	StateOpenUnbound
	StateOpenBound
	StateListening
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpenUnbound:
		return "open-unbound"
	case StateOpenBound:
		return "open-bound"
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Socket is a deadline-bounded, non-blocking-by-contract TCP socket: all
// I/O operations take an absolute deadline rather than blocking forever.
// It wraps net.Listener/net.Conn, which is the pack's idiom for TCP
// handling (ws/internal/shared/server.go, franz-go broker.go).
type Socket struct {
	mu         sync.Mutex
	state      State
	listener   *net.TCPListener
	conn       net.Conn
	localAddr  net.Addr
	remoteAddr net.Addr
}

// NewUnbound returns a socket in the open-unbound state.
func NewUnbound() *Socket {
	return &Socket{state: StateOpenUnbound}
}

// State reports the socket's current state.
func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LocalAddr and RemoteAddr are populated once the socket is connected.
func (s *Socket) LocalAddr() net.Addr  { s.mu.Lock(); defer s.mu.Unlock(); return s.localAddr }
func (s *Socket) RemoteAddr() net.Addr { s.mu.Lock(); defer s.mu.Unlock(); return s.remoteAddr }

// Bind binds to ep with SO_REUSEADDR set, as spec.md §4.C requires.
func (s *Socket) Bind(ep Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpenUnbound {
		return fmt.Errorf("tcpsocket: bind requires open-unbound state, got %s", s.state)
	}
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	ln, err := lc.Listen(context.Background(), "tcp", ep.String())
	if err != nil {
		return fmt.Errorf("tcpsocket: bind %s: %w", ep, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return fmt.Errorf("tcpsocket: bind %s: expected *net.TCPListener", ep)
	}
	s.listener = tcpLn
	s.localAddr = ln.Addr()
	s.state = StateOpenBound
	return nil
}

// Listen transitions open-bound -> listening. backlog is advisory (the
// Go runtime manages its own accept backlog); kept for API symmetry with
// spec.md's bind/listen/accept transition chain.
func (s *Socket) Listen(backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpenBound {
		return fmt.Errorf("tcpsocket: listen requires open-bound state, got %s", s.state)
	}
	s.state = StateListening
	return nil
}

// Accept blocks until a connection arrives, the deadline expires (nil,
// nil), or the listener is closed out from under it (ErrConnectionAborted).
func (s *Socket) Accept(deadline clock.Timestamp) (*Socket, error) {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return nil, fmt.Errorf("tcpsocket: accept requires listening state, got %s", s.state)
	}
	ln := s.listener
	s.mu.Unlock()

	if !deadline.IsZero() {
		if err := ln.SetDeadline(deadline.Time()); err != nil {
			return nil, fmt.Errorf("tcpsocket: set accept deadline: %w", err)
		}
	}
	conn, err := ln.AcceptTCP()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrConnectionAborted
		}
		return nil, fmt.Errorf("tcpsocket: accept: %w", err)
	}
	accepted := &Socket{
		state:      StateConnected,
		conn:       conn,
		localAddr:  conn.LocalAddr(),
		remoteAddr: conn.RemoteAddr(),
	}
	return accepted, nil
}

// Connect initiates and completes a connection to addr's preferred
// endpoint before returning, per spec.md §4.C.
func (s *Socket) Connect(addr AddrInfo, deadline clock.Timestamp) error {
	s.mu.Lock()
	if s.state != StateOpenUnbound {
		s.mu.Unlock()
		return fmt.Errorf("tcpsocket: connect requires open-unbound state, got %s", s.state)
	}
	s.mu.Unlock()

	ep, err := addr.FirstEndpoint()
	if err != nil {
		return err
	}
	d := net.Dialer{}
	if !deadline.IsZero() {
		d.Deadline = deadline.Time()
	}
	conn, err := d.Dial("tcp", ep.String())
	if err != nil {
		return fmt.Errorf("tcpsocket: connect %s: %w", ep, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.localAddr = conn.LocalAddr()
	s.remoteAddr = conn.RemoteAddr()
	s.state = StateConnected
	s.mu.Unlock()
	return nil
}

// Read performs a deadline-bounded read. n == 0, err == nil means the
// deadline expired with the connection still live (spec.md §4.C).
func (s *Socket) Read(buf []byte, deadline clock.Timestamp) (int, error) {
	s.mu.Lock()
	conn := s.conn
	state := s.state
	s.mu.Unlock()
	if state != StateConnected || conn == nil {
		return 0, ErrNotOpen
	}

	if !deadline.IsZero() {
		if err := conn.SetReadDeadline(deadline.Time()); err != nil {
			return 0, fmt.Errorf("tcpsocket: set read deadline: %w", err)
		}
	}
	n, err := conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, nil
		}
		if isAbort(err) {
			return n, ErrConnectionAborted
		}
		return n, fmt.Errorf("tcpsocket: read: %w", err)
	}
	return n, nil
}

// Write performs a deadline-bounded write; a SIGPIPE-equivalent is
// surfaced as ErrConnectionAborted (spec.md §4.C).
func (s *Socket) Write(buf []byte, deadline clock.Timestamp) (int, error) {
	s.mu.Lock()
	conn := s.conn
	state := s.state
	s.mu.Unlock()
	if state != StateConnected || conn == nil {
		return 0, ErrNotOpen
	}

	if !deadline.IsZero() {
		if err := conn.SetWriteDeadline(deadline.Time()); err != nil {
			return 0, fmt.Errorf("tcpsocket: set write deadline: %w", err)
		}
	}
	n, err := conn.Write(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, nil
		}
		if isAbort(err) {
			return n, ErrConnectionAborted
		}
		return n, fmt.Errorf("tcpsocket: write: %w", err)
	}
	return n, nil
}

// Close transitions any state to closed. Closing an already-closed
// socket is a no-op.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	var err error
	if s.conn != nil {
		err = s.conn.Close()
	}
	if s.listener != nil {
		if lerr := s.listener.Close(); lerr != nil && err == nil {
			err = lerr
		}
	}
	s.state = StateClosed
	return err
}

func isAbort(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED)
}
