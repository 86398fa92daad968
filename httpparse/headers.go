package httpparse

import "strings"

// KnownHeader is a closed enumeration of the header names requests and
// responses see most often, addressed by integer index for a fast path that
// avoids a string-keyed map lookup — generalized from the header-field
// dispatch in the teacher's core/http/request.go (Request.SetHeader) and
// core/http/context.go (Context.Header), which special-case a handful of
// fields by switch statement. Ember widens that closed set to match
// spec.md §3's example list and indexes it instead of switching, so the
// Headers map can store known values in a fixed array the same way
// core/http/context_fd.go stores path parameters.
type KnownHeader int

const (
	HeaderUnknown KnownHeader = iota
	HeaderContentType
	HeaderContentLength
	HeaderConnection
	HeaderAccept
	HeaderAuthorization
	HeaderCookie
	HeaderHost
	HeaderUserAgent
	HeaderTransferEncoding
	HeaderDate
	HeaderServer
	HeaderSetCookie
	HeaderXRequestID
	knownHeaderCount
)

var knownHeaderNames = [knownHeaderCount]string{
	HeaderUnknown:          "",
	HeaderContentType:      "Content-Type",
	HeaderContentLength:    "Content-Length",
	HeaderConnection:       "Connection",
	HeaderAccept:           "Accept",
	HeaderAuthorization:    "Authorization",
	HeaderCookie:           "Cookie",
	HeaderHost:             "Host",
	HeaderUserAgent:        "User-Agent",
	HeaderTransferEncoding: "Transfer-Encoding",
	HeaderDate:             "Date",
	HeaderServer:           "Server",
	HeaderSetCookie:        "Set-Cookie",
	HeaderXRequestID:       "X-Request-Id",
}

func lookupKnownHeader(name string) KnownHeader {
	for i := KnownHeader(1); i < knownHeaderCount; i++ {
		if strings.EqualFold(knownHeaderNames[i], name) {
			return i
		}
	}
	return HeaderUnknown
}

// CanonicalName returns the canonical (response-serialization) casing for a
// known header, or name unchanged if it is not in the closed enumeration.
func CanonicalName(name string) string {
	if k := lookupKnownHeader(name); k != HeaderUnknown {
		return knownHeaderNames[k]
	}
	return name
}

// headerField is one stored header: its canonical name, its known-header
// index (HeaderUnknown for anything outside the closed set), and its
// value(s). Set-Cookie is the one header RFC 7230 says must never be
// combined on duplicate names; every other header's duplicate values are
// combined with ", " per spec.md §4.3.
type headerField struct {
	name   string
	known  KnownHeader
	values []string
}

// Headers is a case-insensitive, insertion-order-preserving multimap of
// header name to value(s), with an O(1) array lookup for the closed set of
// KnownHeader names and a fallback slice scan (headers per request rarely
// exceed a dozen, so linear scan beats a map's hashing and allocation cost)
// for anything else.
type Headers struct {
	known   [knownHeaderCount]int // index into fields, +1; 0 means absent
	fields  []headerField
	unknown []int // indices into fields for HeaderUnknown entries
}

// NewHeaders returns an empty Headers map.
func NewHeaders() *Headers {
	return &Headers{}
}

// Reset clears the map for reuse without releasing backing storage,
// matching the teacher's Reset-for-pool-reuse convention throughout
// core/http (Request.Reset, FDContext.Reset).
func (h *Headers) Reset() {
	for i := range h.known {
		h.known[i] = 0
	}
	h.fields = h.fields[:0]
	h.unknown = h.unknown[:0]
}

// Set stores a header value, replacing any existing value for the same name
// (except Set-Cookie, which is never replaced and instead accumulates as
// repeated entries for Values to enumerate). Add is the combining variant.
func (h *Headers) Set(name, value string) {
	known := lookupKnownHeader(name)

	if known != HeaderUnknown {
		if idx := h.known[known]; idx != 0 {
			f := &h.fields[idx-1]
			if known == HeaderSetCookie {
				f.values = append(f.values, value)
			} else {
				f.values[0] = value
			}
			return
		}
		h.fields = append(h.fields, headerField{name: knownHeaderNames[known], known: known, values: []string{value}})
		h.known[known] = len(h.fields)
		return
	}

	for _, idx := range h.unknown {
		if strings.EqualFold(h.fields[idx].name, name) {
			h.fields[idx].values[0] = value
			return
		}
	}
	h.fields = append(h.fields, headerField{name: name, known: HeaderUnknown, values: []string{value}})
	h.unknown = append(h.unknown, len(h.fields)-1)
}

// Add appends a value for name without overwriting any existing value,
// combining per RFC 7230 with ", " except for Set-Cookie, which is kept as
// distinct entries. Used by the parser when it sees a repeated header line.
func (h *Headers) Add(name, value string) {
	known := lookupKnownHeader(name)

	if known != HeaderUnknown {
		if idx := h.known[known]; idx != 0 {
			f := &h.fields[idx-1]
			if known == HeaderSetCookie {
				f.values = append(f.values, value)
			} else {
				f.values[0] = f.values[0] + ", " + value
			}
			return
		}
		h.Set(name, value)
		return
	}

	for _, idx := range h.unknown {
		if strings.EqualFold(h.fields[idx].name, name) {
			h.fields[idx].values[0] = h.fields[idx].values[0] + ", " + value
			return
		}
	}
	h.Set(name, value)
}

// Get returns the first value stored for name, and whether it was present.
func (h *Headers) Get(name string) (string, bool) {
	known := lookupKnownHeader(name)
	if known != HeaderUnknown {
		idx := h.known[known]
		if idx == 0 {
			return "", false
		}
		return h.fields[idx-1].values[0], true
	}
	for _, idx := range h.unknown {
		if strings.EqualFold(h.fields[idx].name, name) {
			return h.fields[idx].values[0], true
		}
	}
	return "", false
}

// Values returns every value stored for name (for Set-Cookie, one per
// occurrence; for everything else, a single already-combined value).
func (h *Headers) Values(name string) []string {
	known := lookupKnownHeader(name)
	if known != HeaderUnknown {
		idx := h.known[known]
		if idx == 0 {
			return nil
		}
		return h.fields[idx-1].values
	}
	for _, idx := range h.unknown {
		if strings.EqualFold(h.fields[idx].name, name) {
			return h.fields[idx].values
		}
	}
	return nil
}

// Range calls fn once per stored header name, in insertion order, with its
// first (or, for Set-Cookie, each) value — used by response serialization
// to emit headers in a stable, reproducible order.
func (h *Headers) Range(fn func(name, value string)) {
	for _, f := range h.fields {
		for _, v := range f.values {
			fn(f.name, v)
		}
	}
}

// Len returns the number of distinct header names stored (Set-Cookie with
// multiple values still counts once).
func (h *Headers) Len() int {
	return len(h.fields)
}
