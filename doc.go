/*
Package ember implements a share-nothing, reactor-per-core HTTP/1.1 serving
runtime.

Each reactor owns an epoll (Linux) or kqueue (BSD/Darwin) instance and every
connection it accepts for the lifetime of that connection; no mutex is taken
on the request path. A connection's driver parses requests into a bump
arena, resolves them against a compile-time-assembled routing table, runs
any configured middleware chain, and writes the response back with
non-blocking, EAGAIN-suspending I/O, resuming HTTP/1.1 pipelined requests
without waiting on another readiness notification.

Quick start:

	cfg := config.New()

	table := router.NewTable()
	route, _ := router.NewRoute("GET", "/hello", func(ctx *router.Context) {
	    ctx.Response.Status = 200
	    ctx.Response.Body = []byte("Hello, World!")
	})
	table.Add(route)
	table.Build()

	if err := server.New(cfg, table, nil).Run(); err != nil {
	    log.Fatal(err)
	}

Modules

The runtime is organized into focused packages:

  - config: process configuration
  - router: route table, path patterns, middleware chain, request context
  - httpparse: incremental HTTP/1.1 request parser
  - httpresp: response assembly and RFC 7807 problem details
  - reactor: epoll/kqueue event loop, listener, reactor pool
  - conn: per-connection state machine driving parse/dispatch/write
  - arena: per-connection bump allocator
  - iobuf: growable read/write byte buffers
  - timer: hashed timing wheel for idle-connection eviction
  - pathpattern: compiled route pattern matching
  - workpool: optional work-stealing pool for handler offload
  - server: wires the above into a running, gracefully-stoppable listener
*/
package ember
