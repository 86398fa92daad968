package router

import "github.com/emberhttp/ember/pathpattern"

// ParamBag holds the path-parameter values captured by a successful match,
// in a fixed-capacity array so binding a request never allocates — the
// values themselves are zero-copy: they are substrings of the request's
// Path string, generalized from the teacher's core/http/context_fd.go
// FDContext, which stores params in a map keyed and valued by string
// (an allocation per request); Ember trades the map's flexibility for an
// array sized to pathpattern.MaxSegments since a pattern can never bind
// more parameters than it has segments.
type ParamBag struct {
	names  [pathpattern.MaxSegments]string
	values [pathpattern.MaxSegments]string
	count  int
}

// bind stores names (typically Route.Pattern.ParamNames(), reused across
// every match of that route) alongside the values pathpattern.Match just
// captured.
func (b *ParamBag) bind(names, values []string) {
	b.count = 0
	for i := range values {
		if b.count >= pathpattern.MaxSegments {
			break
		}
		b.names[b.count] = names[i]
		b.values[b.count] = values[i]
		b.count++
	}
}

// reset clears the bag for reuse on the next request without releasing the
// backing arrays.
func (b *ParamBag) reset() {
	b.count = 0
}

// Get returns the value bound to name, and whether it was present.
func (b *ParamBag) Get(name string) (string, bool) {
	for i := 0; i < b.count; i++ {
		if b.names[i] == name {
			return b.values[i], true
		}
	}
	return "", false
}

// Len returns the number of bound parameters.
func (b *ParamBag) Len() int { return b.count }
