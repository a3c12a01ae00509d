package httpparser

import "testing"

func feed(t *testing.T, p *Parser, data []byte) {
	t.Helper()
	for i, b := range data {
		p.Parse(b)
		if p.IsBad() {
			t.Fatalf("parser went bad at byte %d (%q): %v", i, b, p.Error())
		}
		if p.IsCompleted() && i != len(data)-1 {
			t.Fatalf("parser completed early at byte %d of %d", i, len(data))
		}
	}
	if !p.IsCompleted() {
		t.Fatalf("parser did not complete after consuming all %d bytes (state=%s)", len(data), p.State())
	}
}

func TestRequestParserSimpleGET(t *testing.T) {
	data := []byte("GET /hello?x=1 HTTP/1.1\r\nHost: example.com\r\nUser-Agent: netcore\r\nAccept: */*\r\n\r\n")

	r := NewRequest(DefaultLimits())
	feed(t, r.Parser, data)

	if r.Method() != "GET" {
		t.Errorf("Method() = %q, want GET", r.Method())
	}
	if r.URI() != "/hello?x=1" {
		t.Errorf("URI() = %q, want /hello?x=1", r.URI())
	}
	if r.Version() != "HTTP/1.1" {
		t.Errorf("Version() = %q, want HTTP/1.1", r.Version())
	}
	if got := r.Headers().Get("Host"); got != "example.com" {
		t.Errorf("Host header = %q, want example.com", got)
	}
	if got := r.Headers().Get("User-Agent"); got != "netcore" {
		t.Errorf("User-Agent header = %q, want netcore", got)
	}
}

func TestRequestParserChunkedBody(t *testing.T) {
	var data []byte
	data = append(data, "POST /upload HTTP/1.1\r\n"...)
	data = append(data, "Host: example.com\r\n"...)
	data = append(data, "Transfer-Encoding: chunked\r\n"...)
	data = append(data, "\r\n"...)
	data = append(data, "4\r\nabcd\r\n"...)
	data = append(data, "4\r\nefgh\r\n"...)
	data = append(data, "0\r\n"...)
	data = append(data, "\r\n"...)

	r := NewRequest(DefaultLimits())

	var body []byte
	for i, b := range data {
		isBody := r.Parse(b)
		if r.IsBad() {
			t.Fatalf("parser went bad at byte %d: %v", i, r.Error())
		}
		if isBody {
			body = append(body, b)
		}
	}
	if !r.IsCompleted() {
		t.Fatalf("parser did not complete, state=%s", r.State())
	}
	if string(body) != "abcdefgh" {
		t.Fatalf("body = %q, want %q", body, "abcdefgh")
	}
	if r.Method() != "POST" || r.URI() != "/upload" {
		t.Fatalf("unexpected leading tokens: %q %q", r.Method(), r.URI())
	}
}

func TestRequestParserIdentityBody(t *testing.T) {
	data := []byte("PUT /thing HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")

	r := NewRequest(DefaultLimits())
	var body []byte
	for _, b := range data {
		if r.Parse(b) {
			body = append(body, b)
		}
	}
	if !r.IsCompleted() {
		t.Fatalf("expected completion, state=%s", r.State())
	}
	if string(body) != "hello" {
		t.Fatalf("body = %q, want hello", body)
	}
}

func TestRequestParserZeroLengthBodyCompletesImmediately(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\n\r\n")
	r := NewRequest(DefaultLimits())
	feed(t, r.Parser, data)
}

func TestRequestParserHeaderFolding(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\nX-Long: part-one\r\n part-two\r\n\r\n")
	r := NewRequest(DefaultLimits())
	feed(t, r.Parser, data)
	if got := r.Headers().Get("X-Long"); got != "part-one part-two" {
		t.Errorf("folded header = %q, want %q", got, "part-one part-two")
	}
}

func TestRequestParserRejectsOversizedToken(t *testing.T) {
	limits := DefaultLimits()
	limits.Token1MaxLen = 3
	r := NewRequest(limits)
	for _, b := range []byte("PATCH /x HTTP/1.1\r\n\r\n") {
		r.Parse(b)
		if r.IsBad() {
			return
		}
	}
	t.Fatalf("expected parser to go bad on an oversized first token")
}

func TestRequestParserMultiValueHeader(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\nX-Tag: a\r\nX-Tag: b\r\n\r\n")
	r := NewRequest(DefaultLimits())
	feed(t, r.Parser, data)
	vals := r.Headers().Values("X-Tag")
	if len(vals) != 2 || vals[0] != "a" || vals[1] != "b" {
		t.Fatalf("X-Tag values = %v, want [a b]", vals)
	}
	if got := r.Headers().Get("X-Tag"); got != "a, b" {
		t.Errorf("joined X-Tag = %q, want %q", got, "a, b")
	}
}

func TestResponseParserStatusLine(t *testing.T) {
	data := []byte("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n")
	r := NewResponse(DefaultLimits())
	feed(t, r.Parser, data)
	if r.Version() != "HTTP/1.1" {
		t.Errorf("Version() = %q", r.Version())
	}
	code, ok := r.StatusCode()
	if !ok || code != 404 {
		t.Errorf("StatusCode() = %d,%v want 404,true", code, ok)
	}
	if r.Reason() != "Not Found" {
		t.Errorf("Reason() = %q, want %q", r.Reason(), "Not Found")
	}
}

func TestParserResetRecoversFromBadState(t *testing.T) {
	r := NewRequest(DefaultLimits())
	r.Parse(' ') // whitespace before any token is invalid
	if !r.IsBad() {
		t.Fatalf("expected bad state")
	}
	r.Reset()
	if r.IsBad() || r.State() != ParsingMessage {
		t.Fatalf("reset did not clear bad state, state=%s", r.State())
	}
	feed(t, r.Parser, []byte("GET / HTTP/1.1\r\n\r\n"))
}

func TestRequestParserTrailerMergedAfterChunkedBody(t *testing.T) {
	var data []byte
	data = append(data, "POST /upload HTTP/1.1\r\n"...)
	data = append(data, "Transfer-Encoding: chunked\r\n\r\n"...)
	data = append(data, "2\r\nhi\r\n"...)
	data = append(data, "0\r\n"...)
	data = append(data, "X-Checksum: deadbeef\r\n"...)
	data = append(data, "\r\n"...)

	r := NewRequest(DefaultLimits())
	feed(t, r.Parser, data)
	if got := r.Headers().Get("X-Checksum"); got != "deadbeef" {
		t.Errorf("trailer X-Checksum = %q, want deadbeef", got)
	}
}
