package broker

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/subsystem"
	"github.com/adred-codev/netcore/internal/tcpsocket"
)

func TestServiceAcceptsMultipleClientsAndBroadcasts(t *testing.T) {
	port := freeLoopbackPort(t)
	local := tcpsocket.Loopback(port).Endpoints[0]

	root := subsystem.New("test", subsystem.WithLogger(logging.Noop()))
	var received sync.Map // msg string -> struct{}
	svc := NewService[string](root, "svc", local, 4, fabric.CopyCloner[string]{}, lineCodec(),
		WithServiceConsumers[string](funcConsumer[string](func(m string) bool {
			received.Store(m, struct{}{})
			return true
		})),
	)
	if err := root.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer root.Stop()

	const clients = 3
	conns := make([]net.Conn, clients)
	for i := 0; i < clients; i++ {
		conn, err := net.Dial("tcp", local.String())
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		defer conn.Close()
		conns[i] = conn
	}

	deadlineAt := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadlineAt) {
		if svc.ActiveConnections() == clients {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if got := svc.ActiveConnections(); got != clients {
		t.Fatalf("active connections = %d, want %d", got, clients)
	}

	if _, err := conns[0].Write([]byte("from-client-0\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitUntil := time.Now().Add(2 * time.Second)
	for time.Now().Before(waitUntil) {
		if _, ok := received.Load("from-client-0"); ok {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if _, ok := received.Load("from-client-0"); !ok {
		t.Fatal("service never delivered received message to registered consumer")
	}

	svc.Broadcast("to-everyone")
	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		if got := string(buf[:n]); got != "to-everyone\n" {
			t.Fatalf("client %d got %q, want %q", i, got, "to-everyone\n")
		}
	}
}

func TestServiceRejectsConnectionsBeyondMaxClients(t *testing.T) {
	port := freeLoopbackPort(t)
	local := tcpsocket.Loopback(port).Endpoints[0]

	root := subsystem.New("test", subsystem.WithLogger(logging.Noop()))
	svc := NewService[string](root, "svc", local, 1, fabric.CopyCloner[string]{}, lineCodec())
	if err := root.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer root.Stop()

	first, err := net.Dial("tcp", local.String())
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()

	deadlineAt := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadlineAt) {
		if svc.ActiveConnections() == 1 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	second, err := net.Dial("tcp", local.String())
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 8)
	_, err = second.Read(buf)
	if err == nil {
		t.Fatal("expected the over-limit connection to be closed by the service")
	}
}
