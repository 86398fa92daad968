// Package httpresp builds and serializes HTTP/1.1 responses, including the
// RFC 7807 problem-details bodies the connection driver emits for parse and
// routing failures.
package httpresp

import (
	"strconv"

	"github.com/emberhttp/ember/httpparse"
	"github.com/emberhttp/ember/iobuf"
)

// TimeFormat is the RFC 7231 IMF-fixdate layout spec.md §6 requires for the
// Date response header, e.g. "Mon, 02 Jan 2006 15:04:05 GMT".
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Response is one outbound HTTP/1.1 response. Headers preserves insertion
// order on serialization, the same contract httpparse.Headers gives
// incoming requests.
type Response struct {
	Status  int
	Headers *httpparse.Headers
	Body    []byte
}

// New returns a Response with the status code set and no headers, ready for
// headers and a body.
func New(status int) *Response {
	r := &Response{Status: status, Headers: httpparse.NewHeaders()}
	return r
}

// Reset clears a Response for pool reuse, mirroring the teacher's
// responseBuf[:0]-and-refill convention in core/http/context.go.
func (r *Response) Reset() {
	r.Status = 0
	r.Headers.Reset()
	r.Body = nil
}

// SerializeInto writes the status line, headers, and body into buf's
// writable span, committing as it goes, generalized from the teacher's
// context.go String/JSON/Bytes/Data methods, which all hand-build
// "HTTP/1.1 <code> <text>\r\n..." into a reusable byte slice via appendInt
// rather than fmt.Sprintf. Ember collapses those four near-duplicate
// methods into one serializer that writes through iobuf.Buffer instead of a
// raw slice, so the connection driver can hand the same buffer straight to
// a non-blocking send.
func (r *Response) SerializeInto(buf *iobuf.Buffer) {
	r.serializeInto(buf, r.Body)
}

// SerializeHeadInto writes exactly what SerializeInto would — including a
// Content-Length reflecting the full body size — but omits the body bytes
// themselves. Used for a HEAD request auto-dispatched to a GET handler per
// spec.md §4.4: the response is computed and its length reported as usual,
// just never written to the wire.
func (r *Response) SerializeHeadInto(buf *iobuf.Buffer) {
	r.serializeInto(buf, nil)
}

func (r *Response) serializeInto(buf *iobuf.Buffer, body []byte) {
	var head []byte
	head = append(head, "HTTP/1.1 "...)
	head = appendInt(head, r.Status)
	head = append(head, ' ')
	head = append(head, StatusText(r.Status)...)
	head = append(head, "\r\n"...)

	hasContentLength := false
	r.Headers.Range(func(name, value string) {
		if name == "Content-Length" {
			hasContentLength = true
		}
		head = append(head, name...)
		head = append(head, ": "...)
		head = append(head, value...)
		head = append(head, "\r\n"...)
	})
	if !hasContentLength {
		head = append(head, "Content-Length: "...)
		head = appendInt(head, len(r.Body))
		head = append(head, "\r\n"...)
	}
	head = append(head, "\r\n"...)

	total := len(head) + len(body)
	span := buf.WritableSpan(total)
	n := copy(span, head)
	n += copy(span[n:], body)
	buf.Commit(n)
}

func appendInt(b []byte, i int) []byte {
	return strconv.AppendInt(b, int64(i), 10)
}

// StatusText returns the reason phrase for a status code, widened from the
// teacher's four-case statusText switch to the set spec.md §7 names plus
// the common successful and redirect codes a router and connection driver
// actually produce.
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 304:
		return "Not Modified"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 406:
		return "Not Acceptable"
	case 409:
		return "Conflict"
	case 413:
		return "Payload Too Large"
	case 415:
		return "Unsupported Media Type"
	case 422:
		return "Unprocessable Entity"
	case 429:
		return "Too Many Requests"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	case 502:
		return "Bad Gateway"
	case 503:
		return "Service Unavailable"
	case 504:
		return "Gateway Timeout"
	default:
		return "Unknown"
	}
}
