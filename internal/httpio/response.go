package httpio

import "fmt"

// Response is a fully-buffered, ready-to-send HTTP/1.1 response: header
// block plus body, Content-Length framed (spec.md §4.J convenience
// constructors for common status codes).
type Response struct {
	Header []byte
	Body   []byte
}

func buildResponse(code int, reason string, headers map[string]string, body []byte) Response {
	h := StatusLine(code, reason)
	h += fmt.Sprintf("Content-Length: %d\r\n", len(body))
	for k, v := range headers {
		h += k + ": " + v + "\r\n"
	}
	h += "\r\n"
	return Response{Header: []byte(h), Body: body}
}

// OK builds a 200 OK response.
func OK(contentType string, body []byte) Response {
	return buildResponse(200, "OK", map[string]string{"Content-Type": contentType}, body)
}

// NotFound builds a 404 Not Found response with a plain-text body.
func NotFound() Response {
	body := []byte("404 Not Found")
	return buildResponse(404, "Not Found", map[string]string{"Content-Type": "text/plain"}, body)
}

// BadRequest builds a 400 Bad Request response, e.g. after
// httpparser.ErrParserBad.
func BadRequest(msg string) Response {
	body := []byte(msg)
	return buildResponse(400, "Bad Request", map[string]string{"Content-Type": "text/plain"}, body)
}

// InternalServerError builds a 500 Internal Server Error response.
func InternalServerError() Response {
	body := []byte("500 Internal Server Error")
	return buildResponse(500, "Internal Server Error", map[string]string{"Content-Type": "text/plain"}, body)
}
