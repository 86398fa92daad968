// Package router matches incoming requests to a registered handler,
// generalizing the teacher's core/router package (FastRouter's hashed
// static map plus linear-scanned param routes, CompiledRouter's
// build-then-serve split) into the priority-scored path pattern matching
// spec.md §4.4 describes.
package router

import (
	"fmt"
	"sort"

	"github.com/emberhttp/ember/pathpattern"
)

// Method is a bitmask-addressable HTTP method, used to build the per-path
// Allow header for 405 responses in O(1) instead of re-scanning every route
// on every rejected request.
type Method uint16

const (
	MethodGet Method = 1 << iota
	MethodHead
	MethodPost
	MethodPut
	MethodPatch
	MethodDelete
	MethodOptions
	MethodConnect
	MethodTrace
)

var methodNames = []struct {
	bit  Method
	name string
}{
	{MethodConnect, "CONNECT"},
	{MethodDelete, "DELETE"},
	{MethodGet, "GET"},
	{MethodHead, "HEAD"},
	{MethodOptions, "OPTIONS"},
	{MethodPatch, "PATCH"},
	{MethodPost, "POST"},
	{MethodPut, "PUT"},
	{MethodTrace, "TRACE"},
}

func methodFromString(s string) (Method, bool) {
	for _, m := range methodNames {
		if m.name == s {
			return m.bit, true
		}
	}
	return 0, false
}

// AllowHeader renders mask as an alphabetically sorted, comma-separated
// Allow header value, per spec.md §9's resolution of the Allow-header
// ordering Open Question. It lists exactly the methods set in mask: HEAD
// appears only when a HEAD route was registered, even though Table.Resolve
// still auto-dispatches a HEAD request to a group's GET route.
func AllowHeader(mask Method) string {
	names := make([]string, 0, len(methodNames))
	for _, m := range methodNames {
		if mask&m.bit != 0 {
			names = append(names, m.name)
		}
	}
	sort.Strings(names)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// HandlerFunc handles one matched request.
type HandlerFunc func(ctx *Context)

// Route binds one (method, path pattern) pair to a handler.
type Route struct {
	Method  string
	Pattern *pathpattern.Pattern
	Handler HandlerFunc

	methodBit Method
	priority  int
}

// NewRoute parses pathTemplate and returns a Route ready for Table.Add. It
// returns an error under the same conditions pathpattern.Parse does, and
// additionally if method is not one of the nine methods Method enumerates.
func NewRoute(method, pathTemplate string, handler HandlerFunc) (*Route, error) {
	bit, ok := methodFromString(method)
	if !ok {
		return nil, fmt.Errorf("router: unsupported method %q", method)
	}
	pattern, err := pathpattern.Parse(pathTemplate)
	if err != nil {
		return nil, err
	}
	return &Route{
		Method:    method,
		Pattern:   pattern,
		Handler:   handler,
		methodBit: bit,
		priority:  pattern.Priority(),
	}, nil
}
