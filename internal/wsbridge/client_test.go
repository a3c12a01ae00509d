package wsbridge

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/subsystem"
)

// funcConsumer adapts a func to fabric.Consumer[T] for tests.
type funcConsumer[T any] func(T) bool

func (f funcConsumer[T]) Push(m T) bool { return f(m) }

// echoServer upgrades every request to a WebSocket and echoes each text
// frame it receives, mirroring handlers_ws.go/pump_read.go's
// upgrade-then-pump shape but server-owned for the purpose of this test.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			for {
				data, op, err := wsutil.ReadClientData(conn)
				if err != nil {
					return
				}
				switch op {
				case ws.OpText, ws.OpBinary:
					if err := wsutil.WriteServerMessage(conn, op, data); err != nil {
						return
					}
				case ws.OpClose:
					return
				}
			}
		}()
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + srv.URL[len("http"):]
}

func TestClientConnectionRoundTrip(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	root := subsystem.New("test", subsystem.WithLogger(logging.Noop()))
	conn := New(root, "ws-client", wsURL(srv))
	if err := root.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer root.Stop()

	out := make(chan []byte, 1)
	sub := fabric.Subscribe[[]byte](conn.Output(), funcConsumer[[]byte](func(m []byte) bool {
		out <- m
		return true
	}))
	defer sub.Close()

	deadline := time.Now().Add(3 * time.Second)
	for {
		if conn.Send([]byte("hello")) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("send never accepted before dial completed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case msg := <-out:
		if string(msg) != "hello" {
			t.Fatalf("got %q, want %q", msg, "hello")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("did not receive echoed frame")
	}
}

func TestClientConnectionReconnectsAfterServerClose(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	root := subsystem.New("test", subsystem.WithLogger(logging.Noop()))
	aborted := make(chan bool, 4)
	conn := New(root, "ws-client", wsURL(srv), WithHooks(Hooks{
		OnDisconnected: func(a bool) {
			select {
			case aborted <- a:
			default:
			}
		},
	}))
	conn.awaitingConnectionTimeout = 20 * time.Millisecond
	if err := root.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer root.Stop()

	conn.Send([]byte("first"))
	deadline := time.Now().Add(3 * time.Second)
	for !conn.currentlyConnectedForTest() {
		if time.Now().After(deadline) {
			t.Fatal("never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Sever the underlying connection out from under the client, the way
	// a network blip or server restart would.
	c, _ := conn.currentConn()
	if closer, ok := c.(interface{ Close() error }); ok {
		closer.Close()
	}

	select {
	case <-aborted:
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnected was never invoked after the connection dropped")
	}

	// The receiver loop should dial again and succeed against the same
	// still-live server.
	deadline = time.Now().Add(3 * time.Second)
	for {
		if conn.currentlyConnectedForTest() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("never reconnected")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (c *ClientConnection) currentlyConnectedForTest() bool {
	_, connected := c.currentConn()
	return connected
}
