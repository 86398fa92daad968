package router

import (
	"github.com/emberhttp/ember/arena"
	"github.com/emberhttp/ember/httpparse"
	"github.com/emberhttp/ember/httpresp"
)

// Context binds one in-flight request to its arena, matched path
// parameters, and outbound response, generalized from the teacher's
// core/http/context.go StandardContext (which binds a net.Conn, a Request,
// and a params map). Ember's Context carries an Arena reference instead of
// a connection, since the reactor owns the connection and hands the
// Context only what a handler needs to read the request and build a
// response.
type Context struct {
	Request  *httpparse.Request
	Response *httpresp.Response
	Params   ParamBag
	Arena    *arena.Arena

	aborted bool
}

// NewContext returns a Context ready for the connection driver to bind to
// each request.
func NewContext() *Context {
	return &Context{Response: httpresp.New(0)}
}

// Reset clears a Context for reuse on the connection's next request. The
// caller resets the Arena separately, once the previous response has been
// fully written.
func (c *Context) Reset() {
	c.Request = nil
	c.Response.Reset()
	c.Params.reset()
	c.aborted = false
}

// BindParams stores a matched route's captured parameter values, keyed by
// the pattern's parameter names, for lookup via Param during handler
// dispatch. Callers outside this package (the connection driver) use this
// instead of touching ParamBag directly.
func (c *Context) BindParams(names, values []string) {
	c.Params.bind(names, values)
}

// Param returns the path parameter bound to name.
func (c *Context) Param(name string) (string, bool) {
	return c.Params.Get(name)
}

// Query returns the first query-string value bound to key.
func (c *Context) Query(key string) (string, bool) {
	return c.Request.QueryValue(key)
}

// Header returns the first value of a request header.
func (c *Context) Header(name string) (string, bool) {
	return c.Request.Headers.Get(name)
}

// Abort marks the context so the middleware chain stops calling further
// before-handlers and the wrapped handler, matching spec.md §4.5's
// short-circuit requirement. After-handlers in middleware already entered
// still run on unwind, the same as a deferred cleanup would.
func (c *Context) Abort() {
	c.aborted = true
}

// Aborted reports whether Abort has been called for this request.
func (c *Context) Aborted() bool {
	return c.aborted
}
