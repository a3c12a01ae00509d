package httpparser

// RequestParser parses a METHOD / URI / VERSION leading line.
// It is a thin naming layer over Parser: METHOD must be a token,
// URI is unrestricted apart from whitespace and CRLF, and VERSION
// runs to the line's CR.
type RequestParser struct {
	*Parser
}

// NewRequest builds a parser for an HTTP request message.
func NewRequest(limits Limits) *RequestParser {
	return &RequestParser{Parser: NewRequestParser(limits)}
}

// Method returns the request's method token (e.g. "GET", "POST").
func (r *RequestParser) Method() string { return r.FirstToken() }

// URI returns the request's request-target, unparsed.
func (r *RequestParser) URI() string { return r.SecondToken() }

// Version returns the request's declared HTTP version (e.g. "HTTP/1.1").
func (r *RequestParser) Version() string { return r.ThirdToken() }
