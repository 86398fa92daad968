package router

import (
	"fmt"
	"sort"

	"github.com/emberhttp/ember/pathpattern"
)

// ResolveStatus classifies the outcome of Table.Resolve.
type ResolveStatus int

const (
	Matched ResolveStatus = iota
	NotFound
	MethodNotAllowed
)

// pathGroup collects every Route registered against the same pattern text,
// one per distinct HTTP method, so a single pattern match can report a 405
// with a complete Allow header instead of only the one method that was
// tried.
type pathGroup struct {
	pattern *pathpattern.Pattern
	mask    Method
	routes  map[Method]*Route
}

// Table is an immutable, built routing table: register every Route with
// Add, call Build once, then Resolve concurrently from as many reactors as
// you like — Build never runs again, so there is nothing left to
// synchronize. This mirrors the teacher's CompiledRouter split between a
// mutable construction phase (Add) and a Build step, but replaces
// CompiledRouter's runtime sync.Map result cache (reads and writes both in
// the request path) with a table that is read-only after Build, since
// spec.md §4.4 calls for route registration to happen once at startup.
type Table struct {
	groups      []*pathGroup
	byPattern   map[string]*pathGroup
	staticIndex map[string]*pathGroup
	built       bool
}

// NewTable returns an empty, unbuilt Table.
func NewTable() *Table {
	return &Table{byPattern: make(map[string]*pathGroup)}
}

// Add registers route. It panics if called after Build, matching the
// teacher's startup-then-serve lifecycle (routes are wired in an app's
// init, never while serving traffic).
func (t *Table) Add(route *Route) {
	if t.built {
		panic("router: Add called after Build")
	}
	key := route.Pattern.String()
	g, ok := t.byPattern[key]
	if !ok {
		g = &pathGroup{pattern: route.Pattern, routes: make(map[Method]*Route)}
		t.byPattern[key] = g
		t.groups = append(t.groups, g)
	}
	if _, dup := g.routes[route.methodBit]; dup {
		panic(fmt.Sprintf("router: duplicate route %s %s", route.Method, key))
	}
	g.routes[route.methodBit] = route
	g.mask |= route.methodBit
}

// Build sorts registered patterns by priority (spec.md §3's literal_count*16
// + (MaxSegments - param_count), ties broken by registration order) and
// constructs the static-route hash index, then validates every hash entry
// against a forced linear scan before serving any traffic — the fast path
// must never disagree with the reference algorithm it is a shortcut for.
func (t *Table) Build() {
	if t.built {
		panic("router: Build called twice")
	}

	sort.SliceStable(t.groups, func(i, j int) bool {
		return t.groups[i].pattern.Priority() > t.groups[j].pattern.Priority()
	})

	t.staticIndex = make(map[string]*pathGroup)
	for _, g := range t.groups {
		if g.pattern.IsFullyStatic() {
			t.staticIndex[g.pattern.String()] = g
		}
	}

	for literalPath, g := range t.staticIndex {
		scanned := t.scanGroups(literalPath)
		if scanned != g {
			panic(fmt.Sprintf("router: static fast path for %q disagrees with linear scan", literalPath))
		}
	}

	t.built = true
}

// scanGroups runs the reference linear scan (ignoring method) used both by
// Resolve's fallback path and by Build's self-check.
func (t *Table) scanGroups(path string) *pathGroup {
	for _, g := range t.groups {
		if _, ok := g.pattern.Match(path); ok {
			return g
		}
	}
	return nil
}

// Resolve matches method and path against the table, returning the route's
// handler and captured parameter values on a match, or a ResolveStatus
// indicating why it did not match: spec.md §4.4 requires a path that
// matches some registered pattern but not with the requested method to
// report 405 with an Allow header rather than a plain 404. headOnly
// reports whether method was HEAD and was auto-dispatched to the group's
// GET handler, per spec.md §4.4 — the caller must serialize the response
// headers (including a Content-Length reflecting the handler's body) but
// write no body bytes.
func (t *Table) Resolve(method, path string) (route *Route, params []string, status ResolveStatus, allow Method, headOnly bool) {
	if !t.built {
		panic("router: Resolve called before Build")
	}

	if g, ok := t.staticIndex[path]; ok {
		return t.resolveInGroup(g, method, nil)
	}

	for _, g := range t.groups {
		if g.pattern.IsFullyStatic() {
			continue // already covered by the hash index above
		}
		if capturedParams, ok := g.pattern.Match(path); ok {
			return t.resolveInGroup(g, method, capturedParams)
		}
	}

	return nil, nil, NotFound, 0, false
}

func (t *Table) resolveInGroup(g *pathGroup, method string, params []string) (*Route, []string, ResolveStatus, Method, bool) {
	bit, ok := methodFromString(method)
	if !ok {
		return nil, nil, MethodNotAllowed, g.mask, false
	}
	route, ok := g.routes[bit]
	if ok {
		return route, params, Matched, 0, false
	}
	if bit == MethodHead {
		if getRoute, ok := g.routes[MethodGet]; ok {
			return getRoute, params, Matched, 0, true
		}
	}
	return nil, nil, MethodNotAllowed, g.mask, false
}
