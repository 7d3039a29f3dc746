package remote

import (
	"bytes"
	"strconv"
	"strings"
)

var headerEnd = []byte("\r\n\r\n")

// exchange is the receive side of one request: a fixed buffer, a write
// position and what has been learned from the headers so far.
type exchange struct {
	buf           []byte
	pos           int
	headersFound  bool
	statusCode    int
	contentLength int
}

func newExchange(size int) *exchange {
	return &exchange{buf: make([]byte, size), contentLength: -1}
}

func (e *exchange) full() bool { return e.pos >= len(e.buf) }

// advance accounts for n freshly read bytes. Once the header terminator shows
// up, the headers are parsed and the body prefix is moved to the start of
// the buffer so pos counts body bytes from then on.
func (e *exchange) advance(n int) {
	e.pos += n
	if e.headersFound {
		return
	}
	idx := bytes.Index(e.buf[:e.pos], headerEnd)
	if idx < 0 {
		return
	}
	e.parseHeaders(string(e.buf[:idx]))
	bodyStart := idx + len(headerEnd)
	copy(e.buf, e.buf[bodyStart:e.pos])
	e.pos -= bodyStart
	e.headersFound = true
}

func (e *exchange) parseHeaders(head string) {
	lines := strings.Split(head, "\r\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "HTTP/") {
		fields := strings.Fields(lines[0])
		if len(fields) >= 2 {
			if code, err := strconv.Atoi(fields[1]); err == nil {
				e.statusCode = code
			}
		}
		lines = lines[1:]
	}
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= 0 {
			e.contentLength = n
		}
	}
}

func (e *exchange) complete() bool {
	return e.headersFound && e.contentLength >= 0 && e.pos >= e.contentLength
}

func (e *exchange) response(end EndReason) *Response {
	body := e.buf[:e.pos]
	if e.headersFound && e.contentLength >= 0 && len(body) > e.contentLength {
		body = body[:e.contentLength]
	}
	out := make([]byte, len(body))
	copy(out, body)
	return &Response{
		StatusCode:    e.statusCode,
		ContentLength: e.contentLength,
		HeadersFound:  e.headersFound,
		Body:          out,
		End:           end,
	}
}
