package httpio

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/httpparser"
	"github.com/adred-codev/netcore/internal/tcpsocket"
)

func connectedPair(t *testing.T) (client, server *tcpsocket.Socket) {
	t.Helper()
	listener := tcpsocket.NewUnbound()
	if err := listener.Bind(tcpsocket.Endpoint{Host: "127.0.0.1", Port: 0}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := listener.Listen(1); err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, port, err := net.SplitHostPort(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}

	accepted := make(chan *tcpsocket.Socket, 1)
	go func() {
		s, _ := listener.Accept(clock.FromDuration(2 * time.Second).Limit())
		accepted <- s
	}()

	ai, err := tcpsocket.Resolve("127.0.0.1", port)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c := tcpsocket.NewUnbound()
	if err := c.Connect(ai, clock.FromDuration(2*time.Second).Limit()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	s := <-accepted
	if s == nil {
		t.Fatal("accept failed")
	}
	t.Cleanup(func() {
		c.Close()
		s.Close()
		listener.Close()
	})
	return c, s
}

func TestWriterReaderRoundTripIdentityBody(t *testing.T) {
	client, server := connectedPair(t)

	w := NewWriter(client, "GET / HTTP/1.1\r\n")
	if drained, err := w.WriteOnce([]byte("hello"), clock.FromDuration(time.Second).Limit()); err != nil || !drained {
		t.Fatalf("WriteOnce: drained=%v err=%v", drained, err)
	}

	r := NewReader(server, 0)
	p := httpparser.NewRequest(httpparser.DefaultLimits())
	var body []byte
	err := r.ReadMessage(p.Parser, func(b byte) { body = append(body, b) }, clock.FromDuration(time.Second).Limit())
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !p.IsCompleted() {
		t.Fatalf("expected completion, state=%s", p.State())
	}
	if string(body) != "hello" {
		t.Fatalf("body = %q, want hello", body)
	}
	if got := p.Headers().Get("Content-Length"); got != "5" {
		t.Fatalf("Content-Length = %q, want 5", got)
	}
}

func TestWriterReaderRoundTripChunkedBody(t *testing.T) {
	client, server := connectedPair(t)

	w := NewWriter(client, "POST /up HTTP/1.1\r\n")
	if _, err := w.WriteChunk([]byte("abcd"), clock.FromDuration(time.Second).Limit()); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if _, err := w.WriteChunk([]byte("efgh"), clock.FromDuration(time.Second).Limit()); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if w.NeedsFlush() {
		t.Fatal("NeedsFlush true after a fully-drained write")
	}
	if _, err := w.Finalize(clock.FromDuration(time.Second).Limit()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	r := NewReader(server, 0)
	p := httpparser.NewRequest(httpparser.DefaultLimits())
	var body []byte
	err := r.ReadMessage(p.Parser, func(b byte) { body = append(body, b) }, clock.FromDuration(time.Second).Limit())
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(body) != "abcdefgh" {
		t.Fatalf("body = %q, want abcdefgh", body)
	}
}

func TestWriterRejectsWriteOnceAfterWriteChunk(t *testing.T) {
	client, _ := connectedPair(t)
	w := NewWriter(client, "HTTP/1.1 200 OK\r\n")
	if _, err := w.WriteChunk([]byte("a"), clock.FromDuration(time.Second).Limit()); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if _, err := w.WriteOnce([]byte("b"), clock.FromDuration(time.Second).Limit()); !errors.Is(err, ErrAlreadyChunked) {
		t.Fatalf("WriteOnce after WriteChunk = %v, want ErrAlreadyChunked", err)
	}
}

func TestWriterBodylessEmitsNoBody(t *testing.T) {
	client, server := connectedPair(t)
	w := NewWriter(client, "HTTP/1.1 204 No Content\r\n")
	if err := w.SetHeaderField("X-Test", "1"); err != nil {
		t.Fatalf("SetHeaderField: %v", err)
	}
	if !w.HeaderContains("x-test") {
		t.Fatal("HeaderContains case-insensitive lookup failed")
	}
	if drained, err := w.WriteBodyless(clock.FromDuration(time.Second).Limit()); err != nil || !drained {
		t.Fatalf("WriteBodyless: drained=%v err=%v", drained, err)
	}

	r := NewReader(server, 0)
	p := httpparser.NewResponse(httpparser.DefaultLimits())
	err := r.ReadMessage(p.Parser, nil, clock.FromDuration(time.Second).Limit())
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got := p.Headers().Get("X-Test"); got != "1" {
		t.Fatalf("X-Test header = %q, want 1", got)
	}
}

func TestWriterRemoveHeaderField(t *testing.T) {
	client, _ := connectedPair(t)
	w := NewWriter(client, "HTTP/1.1 200 OK\r\n")
	if err := w.SetHeaderField("X-Test", "1"); err != nil {
		t.Fatalf("SetHeaderField: %v", err)
	}
	if err := w.RemoveHeaderField("X-Test"); err != nil {
		t.Fatalf("RemoveHeaderField: %v", err)
	}
	if w.HeaderContains("X-Test") {
		t.Fatal("HeaderContains true after RemoveHeaderField")
	}
	if vals := w.HeaderValues("X-Test"); vals != nil {
		t.Fatalf("HeaderValues = %v, want nil", vals)
	}
}

func TestResponseConstructorsSetContentLength(t *testing.T) {
	resp := OK("text/plain", []byte("hi"))
	if string(resp.Body) != "hi" {
		t.Fatalf("body = %q", resp.Body)
	}
	if !strings.Contains(string(resp.Header), "Content-Length: 2") {
		t.Fatalf("header missing Content-Length: %q", resp.Header)
	}
	if !strings.Contains(string(NotFound().Header), "404 Not Found") {
		t.Fatal("NotFound header missing status line")
	}
}
