package httpparser

import "strconv"

// ResponseParser parses a VERSION / STATUS / REASON leading line.
// STATUS is restricted to digits; REASON runs unrestricted to the
// line's CR, since reason phrases may contain spaces ("Not Found").
type ResponseParser struct {
	*Parser
}

// NewResponse builds a parser for an HTTP response message.
func NewResponse(limits Limits) *ResponseParser {
	return &ResponseParser{Parser: NewResponseParser(limits)}
}

// Version returns the response's declared HTTP version.
func (r *ResponseParser) Version() string { return r.FirstToken() }

// StatusCode parses the response's numeric status code. ok is false if
// the status line has not been fully parsed yet or is non-numeric.
func (r *ResponseParser) StatusCode() (code int, ok bool) {
	n, err := strconv.Atoi(r.SecondToken())
	if err != nil {
		return 0, false
	}
	return n, true
}

// Reason returns the response's reason phrase (e.g. "OK", "Not Found").
func (r *ResponseParser) Reason() string { return r.ThirdToken() }
