package broker

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/subsystem"
	"github.com/adred-codev/netcore/internal/tcpsocket"
)

func freeLoopbackPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port %q: %v", portStr, err)
	}
	return port
}

func TestListeningConnectionAcceptsAndEchoesRoundTrip(t *testing.T) {
	port := freeLoopbackPort(t)
	local := tcpsocket.Loopback(port).Endpoints[0]

	root := subsystem.New("test", subsystem.WithLogger(logging.Noop()))
	connected := make(chan struct{}, 1)
	lc := NewListeningConnection[string](root, "listener", local, fabric.CopyCloner[string]{}, lineCodec(),
		WithListeningHooks[string](Hooks[string]{
			OnSenderConnected: func() {
				select {
				case connected <- struct{}{}:
				default:
				}
			},
		}),
	)
	if err := root.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer root.Stop()

	conn, err := net.Dial("tcp", local.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("listening connection never reported connected")
	}

	if _, err := conn.Write([]byte("ping\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := make(chan string, 1)
	sub := fabric.Subscribe[string](lc.Output(), funcConsumer[string](func(m string) bool {
		out <- m
		return true
	}))
	defer sub.Close()

	// The write above may have landed before the subscription attached;
	// send a second message the subscriber is guaranteed to observe.
	if _, err := conn.Write([]byte("pong\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-out:
			if msg == "pong" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for received message")
		}
	}
}

func TestListeningConnectionSendDeliversToPeer(t *testing.T) {
	port := freeLoopbackPort(t)
	local := tcpsocket.Loopback(port).Endpoints[0]

	root := subsystem.New("test", subsystem.WithLogger(logging.Noop()))
	lc := NewListeningConnection[string](root, "listener", local, fabric.CopyCloner[string]{}, lineCodec())
	if err := root.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer root.Stop()

	conn, err := net.Dial("tcp", local.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the receiver time to register the new peer before sending.
	time.Sleep(150 * time.Millisecond)
	if !lc.Send("hello-peer") {
		t.Fatal("send should be admitted")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "hello-peer\n" {
		t.Fatalf("got %q, want %q", got, "hello-peer\n")
	}
}
