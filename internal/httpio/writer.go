package httpio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/tcpsocket"
)

// ErrAlreadyChunked is returned by WriteOnce once WriteChunk has already
// framed output on the same Writer (spec.md §4.J invariant).
var ErrAlreadyChunked = errors.New("httpio: write_once called after write_chunk")

// Writer buffers an outgoing HTTP/1.1 message over a tcpsocket.Socket:
// field-by-field header management followed by exactly one of three
// body-framing strategies. Grounded on original_source's
// HttpMessageStreamWriter.cxx / HTTPResponse.hxx header-then-body state
// machine, adapted to Go's io.Writer-less deadline-bounded socket API.
type Writer struct {
	sock       *tcpsocket.Socket
	statusLine string

	order   []string // canonical header names, first-seen order
	display map[string]string
	values  map[string][]string

	pending  []byte
	chunked  bool
	started  bool // status line + headers already rendered into pending
	finished bool
}

// NewWriter prepares a writer for a message beginning with statusLine
// (e.g. StatusLine(200, "OK") or a request line), CRLF included.
func NewWriter(sock *tcpsocket.Socket, statusLine string) *Writer {
	return &Writer{
		sock:       sock,
		statusLine: statusLine,
		display:    make(map[string]string),
		values:     make(map[string][]string),
	}
}

func canonicalHeader(name string) string { return strings.ToLower(name) }

// SetHeaderField sets name's value, replacing any values set earlier.
// Fails once the header block has already been rendered.
func (w *Writer) SetHeaderField(name, value string) error {
	if w.started {
		return fmt.Errorf("httpio: cannot modify headers after output has started")
	}
	key := canonicalHeader(name)
	if _, ok := w.values[key]; !ok {
		w.order = append(w.order, key)
	}
	w.display[key] = name
	w.values[key] = []string{value}
	return nil
}

// HeaderContains reports whether name has been set at least once.
func (w *Writer) HeaderContains(name string) bool {
	_, ok := w.values[canonicalHeader(name)]
	return ok
}

// HeaderValues returns the raw, un-joined value list set for name.
func (w *Writer) HeaderValues(name string) []string {
	return w.values[canonicalHeader(name)]
}

// RemoveHeaderField drops name entirely. Fails once the header block
// has already been rendered.
func (w *Writer) RemoveHeaderField(name string) error {
	if w.started {
		return fmt.Errorf("httpio: cannot modify headers after output has started")
	}
	key := canonicalHeader(name)
	if _, ok := w.values[key]; !ok {
		return nil
	}
	delete(w.values, key)
	delete(w.display, key)
	for i, n := range w.order {
		if n == key {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return nil
}

func (w *Writer) renderHeaderBlock() []byte {
	var b []byte
	b = append(b, w.statusLine...)
	for _, key := range w.order {
		name := w.display[key]
		for _, v := range w.values[key] {
			b = append(b, name...)
			b = append(b, ':', ' ')
			b = append(b, v...)
			b = append(b, '\r', '\n')
		}
	}
	b = append(b, '\r', '\n')
	return b
}

// WriteOnce sets Content-Length automatically and emits start-line +
// headers + body in a single buffered write. Once any byte is handed to
// the socket, the status line and headers are locked; calling it after
// WriteChunk has run on the same Writer fails with ErrAlreadyChunked.
func (w *Writer) WriteOnce(body []byte, deadline clock.Timestamp) (bool, error) {
	if w.chunked {
		return false, ErrAlreadyChunked
	}
	if w.started {
		return false, fmt.Errorf("httpio: output already started")
	}
	if err := w.SetHeaderField("Content-Length", strconv.Itoa(len(body))); err != nil {
		return false, err
	}
	w.started = true
	w.finished = true
	w.pending = append(w.pending, w.renderHeaderBlock()...)
	w.pending = append(w.pending, body...)
	return w.Flush(deadline)
}

// WriteChunk emits the start-line + headers (with Transfer-Encoding:
// chunked) on its first call, then frames body as one chunk (hex size +
// CRLF + body + CRLF) on every call, including this one. Call with an
// empty body and Finalize to close out the stream.
func (w *Writer) WriteChunk(body []byte, deadline clock.Timestamp) (bool, error) {
	if w.finished {
		return false, fmt.Errorf("httpio: write after finalize")
	}
	if !w.chunked {
		if w.started {
			return false, fmt.Errorf("httpio: write_chunk must be the first write strategy used")
		}
		if err := w.SetHeaderField("Transfer-Encoding", "chunked"); err != nil {
			return false, err
		}
		w.chunked = true
		w.started = true
		w.pending = append(w.pending, w.renderHeaderBlock()...)
	}
	if len(body) > 0 {
		w.pending = append(w.pending, []byte(fmt.Sprintf("%x\r\n", len(body)))...)
		w.pending = append(w.pending, body...)
		w.pending = append(w.pending, '\r', '\n')
	}
	return w.Flush(deadline)
}

// WriteBodyless emits start-line + headers only.
func (w *Writer) WriteBodyless(deadline clock.Timestamp) (bool, error) {
	if w.started {
		return false, fmt.Errorf("httpio: output already started")
	}
	w.started = true
	w.finished = true
	w.pending = append(w.pending, w.renderHeaderBlock()...)
	return w.Flush(deadline)
}

// Finalize terminates chunked output with a zero-size chunk and trailer;
// on a writer that never chose write_chunk it is equivalent to Flush.
func (w *Writer) Finalize(deadline clock.Timestamp) (bool, error) {
	if w.chunked && !w.finished {
		w.pending = append(w.pending, []byte("0\r\n\r\n")...)
	}
	w.finished = true
	return w.Flush(deadline)
}

// NeedsFlush reports whether bytes remain buffered, unsent to the
// socket (a prior write or Flush call returned false because its
// deadline expired before the buffer drained).
func (w *Writer) NeedsFlush() bool { return len(w.pending) > 0 }

// Flush pushes any residual buffered bytes to the socket, honoring
// deadline. It returns true once the buffer is fully drained; false
// (with a nil error) means the deadline expired with bytes still
// pending, not a failure.
func (w *Writer) Flush(deadline clock.Timestamp) (bool, error) {
	for len(w.pending) > 0 {
		n, err := w.sock.Write(w.pending, deadline)
		if err != nil {
			return false, fmt.Errorf("httpio: write: %w", err)
		}
		if n == 0 {
			return false, nil
		}
		w.pending = w.pending[n:]
	}
	return true, nil
}

// StatusLine renders an HTTP/1.1 status line.
func StatusLine(code int, reason string) string {
	return "HTTP/1.1 " + strconv.Itoa(code) + " " + reason + "\r\n"
}
