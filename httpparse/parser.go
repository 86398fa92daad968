// Package httpparse implements an incremental HTTP/1.1 request parser.
//
// Where the teacher's core/http/parser.go parses a whole buffer in one
// ParseRequest call (built for the read-everything-then-parse style its
// reactor uses), Ember's reactor hands the parser whatever bytes a single
// edge-triggered read produced, which may be a partial request line, a
// header split mid-name, or nothing at all. Parser therefore keeps a small
// explicit state machine and a Feed method that consumes as much of its
// input as it can and reports whether a full request is ready, the same
// incremental contract spec.md §4.3 describes.
package httpparse

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/emberhttp/ember/arena"
	"golang.org/x/net/http/httpguts"
)

// Limits on request-line, header, and body size, per spec.md §4.3.
const (
	MaxRequestLineBytes = 8 * 1024
	MaxURIBytes         = 2 * 1024
	MaxHeaderBytes      = 16 * 1024
	MaxHeaderCount      = 100
	MaxBodyBytes        = 10 * 1024 * 1024
)

// ErrRequestTooLarge, ErrMalformed, and ErrHeaderConflict are the error
// classes a connection driver maps to RFC 7807 problem responses; the
// driver answers all three with 400, per spec.md §7.
var (
	ErrMalformed       = errors.New("httpparse: malformed request")
	ErrRequestTooLarge = errors.New("httpparse: request exceeds configured limit")
	ErrHeaderConflict  = errors.New("httpparse: conflicting Transfer-Encoding and Content-Length")
)

// state is the parser's current position in an HTTP/1.1 request.
type state int

const (
	stateRequestLine state = iota
	stateHeaderLine
	stateBody
	stateChunkSize
	stateChunkData
	stateChunkCRLF
	stateChunkTrailer
	stateComplete
)

// Parser incrementally decodes one request at a time out of a byte stream,
// writing every string view it produces into an Arena so the caller's I/O
// buffer can be compacted or reused without invalidating the parsed
// request. Call Reset between requests on a keep-alive connection; a single
// Parser is meant to be reused for the lifetime of a connection, mirroring
// the teacher's per-connection object reuse (core/http/request.go's pool).
type Parser struct {
	state state
	a     *arena.Arena
	req   *Request

	lineBuf     []byte
	contentRead int64
	chunkRemain int64
	sawLength   bool
	sawChunked  bool
}

// NewParser returns a Parser that allocates request views from a.
func NewParser(a *arena.Arena) *Parser {
	return &Parser{a: a, req: NewRequest()}
}

// Reset prepares the parser for the next request on the same connection.
// The caller is responsible for resetting the Arena separately once the
// prior request's response has been fully written.
func (p *Parser) Reset() {
	p.state = stateRequestLine
	p.req.Reset()
	p.lineBuf = p.lineBuf[:0]
	p.contentRead = 0
	p.chunkRemain = 0
	p.sawLength = false
	p.sawChunked = false
}

// Request returns the request under construction (or, once Feed reports
// done, the completed request). Callers must copy out anything they need
// before the Parser is Reset or the backing Arena is reset.
func (p *Parser) Request() *Request { return p.req }

// Feed consumes data up to the end of the current request, returning the
// number of bytes consumed and whether a full request is now available. A
// partial line is buffered inside the Parser and counted as consumed, and a
// partial body or chunk is copied out as it arrives, so the only bytes Feed
// leaves unconsumed are those after a completed request (for example a
// pipelined next request) or at the point of an error. Feed never blocks or
// reads ahead beyond what it is given.
func (p *Parser) Feed(data []byte) (consumed int, done bool, err error) {
	total := 0

	for total < len(data) || p.state == stateBody && p.req.ContentLength == 0 {
		switch p.state {
		case stateRequestLine:
			n, lineDone, lerr := p.feedLine(data[total:], MaxRequestLineBytes)
			total += n
			if lerr != nil {
				return total, false, lerr
			}
			if !lineDone {
				return total, false, nil
			}
			if err := p.parseRequestLine(p.lineBuf); err != nil {
				return total, false, err
			}
			p.lineBuf = p.lineBuf[:0]
			p.state = stateHeaderLine

		case stateHeaderLine:
			n, lineDone, lerr := p.feedLine(data[total:], MaxHeaderBytes)
			total += n
			if lerr != nil {
				return total, false, lerr
			}
			if !lineDone {
				return total, false, nil
			}
			line := p.lineBuf
			p.lineBuf = p.lineBuf[:0]

			if len(line) == 0 {
				if err := p.finishHeaders(); err != nil {
					return total, false, err
				}
				continue
			}
			if p.req.Headers.Len() >= MaxHeaderCount {
				return total, false, fmt.Errorf("%w: too many headers", ErrRequestTooLarge)
			}
			if err := p.parseHeaderLine(line); err != nil {
				return total, false, err
			}

		case stateBody:
			if p.req.ContentLength == 0 {
				p.state = stateComplete
				return total, true, nil
			}
			remain := p.req.ContentLength - p.contentRead
			avail := int64(len(data) - total)
			take := remain
			if avail < take {
				take = avail
			}
			if take > 0 {
				chunk := p.a.AllocateCopy(data[total : total+int(take)])
				p.req.Body = append(p.req.Body, chunk...)
				total += int(take)
				p.contentRead += take
			}
			if p.contentRead >= p.req.ContentLength {
				p.state = stateComplete
				return total, true, nil
			}
			return total, false, nil

		case stateChunkSize:
			n, lineDone, lerr := p.feedLine(data[total:], 64)
			total += n
			if lerr != nil {
				return total, false, lerr
			}
			if !lineDone {
				return total, false, nil
			}
			line := p.lineBuf
			p.lineBuf = p.lineBuf[:0]
			if idx := bytes.IndexByte(line, ';'); idx >= 0 {
				line = line[:idx]
			}
			size, perr := strconv.ParseInt(string(bytes.TrimSpace(line)), 16, 64)
			if perr != nil {
				return total, false, fmt.Errorf("%w: bad chunk size", ErrMalformed)
			}
			if int64(len(p.req.Body))+size > MaxBodyBytes {
				return total, false, fmt.Errorf("%w: chunked body exceeds limit", ErrRequestTooLarge)
			}
			p.chunkRemain = size
			if size == 0 {
				p.state = stateChunkTrailer
			} else {
				p.state = stateChunkData
			}

		case stateChunkData:
			avail := int64(len(data) - total)
			take := p.chunkRemain
			if avail < take {
				take = avail
			}
			if take > 0 {
				chunk := p.a.AllocateCopy(data[total : total+int(take)])
				p.req.Body = append(p.req.Body, chunk...)
				total += int(take)
				p.chunkRemain -= take
			}
			if p.chunkRemain == 0 {
				p.state = stateChunkCRLF
			} else {
				return total, false, nil
			}

		case stateChunkCRLF:
			n, lineDone, lerr := p.feedLine(data[total:], 2)
			total += n
			if lerr != nil {
				return total, false, lerr
			}
			if !lineDone {
				return total, false, nil
			}
			p.lineBuf = p.lineBuf[:0]
			p.state = stateChunkSize

		case stateChunkTrailer:
			n, lineDone, lerr := p.feedLine(data[total:], MaxHeaderBytes)
			total += n
			if lerr != nil {
				return total, false, lerr
			}
			if !lineDone {
				return total, false, nil
			}
			line := p.lineBuf
			p.lineBuf = p.lineBuf[:0]
			if len(line) == 0 {
				p.state = stateComplete
				return total, true, nil
			}
			// Trailer headers are parsed but not retained separately; fold
			// into the main header set, matching how clients expect to find
			// them.
			if err := p.parseHeaderLine(line); err != nil {
				return total, false, err
			}

		case stateComplete:
			return total, true, nil
		}
	}

	return total, p.state == stateComplete, nil
}

// feedLine accumulates bytes into p.lineBuf until it sees an unescaped '\n',
// stripping a trailing '\r'. It reports done=true once a full line (without
// terminator) is available in p.lineBuf.
func (p *Parser) feedLine(data []byte, limit int) (consumed int, done bool, err error) {
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		if len(p.lineBuf)+len(data) > limit {
			return 0, false, fmt.Errorf("%w: line exceeds limit", ErrRequestTooLarge)
		}
		p.lineBuf = append(p.lineBuf, data...)
		return len(data), false, nil
	}
	if len(p.lineBuf)+idx > limit {
		return 0, false, fmt.Errorf("%w: line exceeds limit", ErrRequestTooLarge)
	}
	p.lineBuf = append(p.lineBuf, data[:idx]...)
	if n := len(p.lineBuf); n > 0 && p.lineBuf[n-1] == '\r' {
		p.lineBuf = p.lineBuf[:n-1]
	}
	return idx + 1, true, nil
}

func (p *Parser) parseRequestLine(line []byte) error {
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return fmt.Errorf("%w: missing method", ErrMalformed)
	}
	rest := line[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 <= 0 {
		return fmt.Errorf("%w: missing request-target", ErrMalformed)
	}
	uri := rest[:sp2]
	proto := rest[sp2+1:]

	if len(uri) > MaxURIBytes {
		return fmt.Errorf("%w: request-target exceeds limit", ErrRequestTooLarge)
	}
	for _, c := range line[:sp1] {
		if !httpguts.IsTokenRune(rune(c)) {
			return fmt.Errorf("%w: invalid method", ErrMalformed)
		}
	}

	p.req.Method = p.a.AllocateString(string(line[:sp1]))
	p.req.RawPath = p.a.AllocateString(string(uri))
	p.req.Proto = p.a.AllocateString(string(proto))

	if qIdx := bytes.IndexByte(uri, '?'); qIdx >= 0 {
		p.req.Path = p.req.RawPath[:qIdx]
		parseQuery(p, uri[qIdx+1:])
	} else {
		p.req.Path = p.req.RawPath
	}

	return nil
}

func parseQuery(p *Parser, raw []byte) {
	for _, pair := range bytes.Split(raw, []byte("&")) {
		if len(pair) == 0 {
			continue
		}
		eq := bytes.IndexByte(pair, '=')
		if eq == -1 {
			p.req.Query = append(p.req.Query, QueryParam{Key: p.a.AllocateString(string(pair))})
			continue
		}
		k := p.a.AllocateString(string(pair[:eq]))
		v := p.a.AllocateString(string(pair[eq+1:]))
		p.req.Query = append(p.req.Query, QueryParam{Key: k, Value: v})
	}
}

func (p *Parser) parseHeaderLine(line []byte) error {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return fmt.Errorf("%w: malformed header line", ErrMalformed)
	}
	name := bytes.TrimSpace(line[:colon])
	value := bytes.TrimSpace(line[colon+1:])

	if !httpguts.ValidHeaderFieldName(string(name)) {
		return fmt.Errorf("%w: invalid header name %q", ErrMalformed, name)
	}
	if !httpguts.ValidHeaderFieldValue(string(value)) {
		return fmt.Errorf("%w: invalid header value for %q", ErrMalformed, name)
	}

	nameStr := p.a.AllocateString(string(name))
	valStr := p.a.AllocateString(string(value))
	p.req.Headers.Add(nameStr, valStr)

	switch CanonicalName(nameStr) {
	case "Content-Length":
		if p.sawChunked {
			return ErrHeaderConflict
		}
		n, perr := strconv.ParseInt(valStr, 10, 64)
		if perr != nil || n < 0 {
			return fmt.Errorf("%w: invalid Content-Length", ErrMalformed)
		}
		if n > MaxBodyBytes {
			return fmt.Errorf("%w: Content-Length exceeds limit", ErrRequestTooLarge)
		}
		if p.sawLength && p.req.ContentLength != n {
			return fmt.Errorf("%w: conflicting Content-Length values", ErrMalformed)
		}
		p.req.ContentLength = n
		p.sawLength = true
	case "Transfer-Encoding":
		if strings.Contains(strings.ToLower(valStr), "chunked") {
			if p.sawLength {
				return ErrHeaderConflict
			}
			p.req.Chunked = true
			p.sawChunked = true
		}
	}

	return nil
}

func (p *Parser) finishHeaders() error {
	if conn, ok := p.req.Headers.Get("Connection"); ok {
		p.req.KeepAlive = strings.Contains(strings.ToLower(conn), "keep-alive")
	} else {
		p.req.KeepAlive = p.req.Proto == "HTTP/1.1"
	}

	if p.req.Chunked {
		p.state = stateChunkSize
		p.req.ContentLength = -1
		return nil
	}
	if p.req.ContentLength < 0 {
		p.req.ContentLength = 0
	}
	p.state = stateBody
	return nil
}
