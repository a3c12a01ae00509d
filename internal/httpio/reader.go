// Package httpio layers buffered, deadline-bounded HTTP/1.1 message I/O
// over internal/tcpsocket and internal/httpparser — spec.md §4.J.
// Grounded on original_source's HttpMessageStreamReader.cxx /
// HttpMessageStreamWriter.cxx for the buffering shape, and on
// ws/internal/shared/pump_read.go's deadline-refresh-per-read loop for
// the Go-side idiom.
package httpio

import (
	"fmt"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/httpparser"
	"github.com/adred-codev/netcore/internal/metrics"
	"github.com/adred-codev/netcore/internal/tcpsocket"
)

const defaultReadBufSize = 4096

// Reader incrementally fills an httpparser.Parser from a socket,
// buffering raw reads and handing the parser one byte at a time.
type Reader struct {
	sock   *tcpsocket.Socket
	buf    []byte
	pos    int
	filled int
}

// NewReader wraps sock with a read buffer of the given size (0 selects
// a default).
func NewReader(sock *tcpsocket.Socket, bufSize int) *Reader {
	if bufSize <= 0 {
		bufSize = defaultReadBufSize
	}
	return &Reader{sock: sock, buf: make([]byte, bufSize)}
}

// ReadMessage drives p to completion, calling onBody for each body byte
// as it is parsed (it may be nil to discard the body). deadline bounds
// the whole read; a zero clock.Timestamp blocks forever.
func (r *Reader) ReadMessage(p *httpparser.Parser, onBody func(byte), deadline clock.Timestamp) error {
	for !p.IsCompleted() {
		if r.pos >= r.filled {
			n, err := r.sock.Read(r.buf, deadline)
			if err != nil {
				return fmt.Errorf("httpio: read: %w", err)
			}
			if n == 0 {
				return tcpsocket.ErrNotOpen
			}
			r.pos, r.filled = 0, n
		}
		b := r.buf[r.pos]
		r.pos++
		isBody := p.Parse(b)
		if p.IsBad() {
			metrics.ParserErrorsTotal.WithLabelValues("http").Inc()
			return fmt.Errorf("httpio: malformed message: %w", p.Error())
		}
		if isBody && onBody != nil {
			onBody(b)
		}
	}
	return nil
}

// Buffered reports how many unconsumed bytes remain in the read buffer
// (useful to detect pipelined requests after a message completes).
func (r *Reader) Buffered() int { return r.filled - r.pos }
