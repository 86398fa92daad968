package router

// Middleware pairs a Before hook (run on the way in, outermost first) with
// an After hook (run on the way out, outermost last), generalized from the
// teacher's core/middleware/pipeline.go Pipeline, which runs a flat,
// before-only list and checks ctx.IsAborted() between each. Ember's Chain
// additionally unwinds through After hooks — including for middlewares
// already entered when a later Before aborts the request — the same
// guaranteed-cleanup shape a deferred function gives a single handler.
//
// Either hook may be nil; a middleware that only needs one side leaves the
// other unset.
type Middleware struct {
	Before func(ctx *Context)
	After  func(ctx *Context)
}

// Chain is an ordered list of middleware wrapped around a terminal
// HandlerFunc.
type Chain struct {
	middlewares []Middleware
}

// NewChain returns an empty Chain.
func NewChain() *Chain {
	return &Chain{}
}

// Use appends mw to the chain, in the order Before hooks will run.
func (c *Chain) Use(mw Middleware) *Chain {
	c.middlewares = append(c.middlewares, mw)
	return c
}

// Dispatch runs Before hooks outermost-first, then handler unless a Before
// hook called ctx.Abort, then After hooks for every middleware that ran its
// Before hook, innermost-first — the before → before → handler → after →
// after order spec.md §4.5 describes.
func (c *Chain) Dispatch(ctx *Context, handler HandlerFunc) {
	entered := 0
	for _, mw := range c.middlewares {
		if mw.Before != nil {
			mw.Before(ctx)
		}
		entered++
		if ctx.Aborted() {
			break
		}
	}

	if !ctx.Aborted() {
		handler(ctx)
	}

	for i := entered - 1; i >= 0; i-- {
		if mw := c.middlewares[i]; mw.After != nil {
			mw.After(ctx)
		}
	}
}
