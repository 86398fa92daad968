// Package conn implements the per-connection driver: the state machine that
// turns raw socket readiness into parsed requests and serialized responses,
// generalized from the original implementation's server::handle_connection
// (katana/core/src/http_server.cpp) into Go using Ember's reactor, iobuf,
// httpparse, router, and httpresp packages in place of that function's
// hand-rolled connection_state, buffer, and parser types.
package conn

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/emberhttp/ember/arena"
	"github.com/emberhttp/ember/httpparse"
	"github.com/emberhttp/ember/httpresp"
	"github.com/emberhttp/ember/iobuf"
	"github.com/emberhttp/ember/reactor"
	"github.com/emberhttp/ember/router"
	"github.com/emberhttp/ember/timer"
)

// State names the connection driver's current phase, per spec.md §4.6.
type State int

const (
	Reading State = iota
	Dispatching
	Writing
	Closing
)

// Config bundles the tunables a Driver needs from the owning server:
// buffer sizing, body/header limits are owned by httpparse, but idle
// timeout and arena block size are connection-level.
type Config struct {
	IdleTimeout    time.Duration
	ArenaBlockSize int
	ReadChunk      int
	ServerName     string
}

// DefaultConfig matches spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:    60 * time.Second,
		ArenaBlockSize: arena.DefaultBlockSize,
		ReadChunk:      4096,
		ServerName:     "ember",
	}
}

// Driver owns one accepted connection's full lifecycle: it is registered
// with exactly one reactor.Reactor for its lifetime and is never touched
// from any other goroutine, matching the share-nothing model.
type Driver struct {
	fd int
	r  *reactor.Reactor

	readBuf  *iobuf.Buffer
	writeBuf *iobuf.Buffer
	a        *arena.Arena
	parser   *httpparse.Parser
	ctx      *router.Context

	table *router.Table
	chain *router.Chain

	state          State
	closeRequested bool

	wheel       *timer.Wheel
	idleTimeout time.Duration
	idleEntry   timer.Entry
	hasIdle     bool

	serverName string

	closed bool
}

// New binds a Driver to an already-accepted, non-blocking fd.
func New(fd int, r *reactor.Reactor, table *router.Table, chain *router.Chain, wheel *timer.Wheel, cfg Config) *Driver {
	a := arena.New(cfg.ArenaBlockSize)
	d := &Driver{
		fd:          fd,
		r:           r,
		readBuf:     iobuf.New(iobuf.DefaultCapacity),
		writeBuf:    iobuf.New(iobuf.DefaultCapacity),
		a:           a,
		parser:      httpparse.NewParser(a),
		ctx:         router.NewContext(),
		table:       table,
		chain:       chain,
		state:       Reading,
		wheel:       wheel,
		idleTimeout: cfg.IdleTimeout,
		serverName:  cfg.ServerName,
	}
	return d
}

// Start registers the driver with its reactor for read readiness and arms
// the idle timer.
func (d *Driver) Start() error {
	if err := d.r.Register(d.fd, reactor.Readable, reactor.Handler{
		OnReadable: d.onReadable,
		OnWritable: d.onWritable,
		OnError:    d.onError,
	}); err != nil {
		return err
	}
	d.armIdleTimer()
	return nil
}

func (d *Driver) armIdleTimer() {
	if d.wheel == nil {
		return
	}
	if d.hasIdle {
		d.wheel.Cancel(d.idleEntry)
	}
	d.idleEntry = d.wheel.Add(d.idleTimeout, d.onIdleTimeout)
	d.hasIdle = true
}

func (d *Driver) disarmIdleTimer() {
	if d.wheel != nil && d.hasIdle {
		d.wheel.Cancel(d.idleEntry)
		d.hasIdle = false
	}
}

func (d *Driver) onIdleTimeout() {
	if d.closed {
		return
	}
	d.close()
}

func (d *Driver) onError() {
	d.close()
}

func (d *Driver) onReadable() {
	d.armIdleTimer()
	d.run()
}

func (d *Driver) onWritable() {
	d.armIdleTimer()
	d.flushWrite()
}

// run implements the Reading/Dispatching portion of the state machine,
// mirroring handle_connection's main while(true) loop: read whatever is
// available, feed the parser, and once a request completes, dispatch and
// fall through into a write attempt.
func (d *Driver) run() {
	if d.closed {
		return
	}

	if !d.writeBuf.Empty() {
		d.flushWrite()
		return
	}

	for {
		if d.readBuf.Empty() {
			n, err := d.readSocket()
			if err != nil {
				if err == unix.EAGAIN {
					d.watchReadable()
					return
				}
				countReadError()
				d.close()
				return
			}
			if n == 0 {
				countReadEOF()
				d.close()
				return
			}
		}

		consumed, done, err := d.parser.Feed(d.readBuf.ReadableSpan())
		d.readBuf.Consume(consumed)
		if err != nil {
			countParseError()
			d.writeProblem(400, err.Error())
			d.closeRequested = true
			d.flushWrite()
			return
		}
		if !done {
			n, rerr := d.readSocket()
			if rerr != nil {
				if rerr == unix.EAGAIN {
					d.watchReadable()
					return
				}
				countReadError()
				d.close()
				return
			}
			if n == 0 {
				countReadEOF()
				d.close()
				return
			}
			continue
		}

		d.state = Dispatching
		d.dispatch()

		d.state = Writing
		d.flushWrite()
		if d.closed || !d.writeBuf.Empty() {
			return
		}
		if d.readBuf.Empty() {
			d.watchReadable()
			return
		}
	}
}

func (d *Driver) readSocket() (int, error) {
	span := d.readBuf.WritableSpan(4096)
	n, err := unix.Read(d.fd, span)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		d.readBuf.Commit(n)
	}
	return n, nil
}

// dispatch runs the matched route's middleware chain and handler, or maps
// a routing failure to an RFC 7807 problem response, per spec.md §4.6 and
// the original's dispatch_or_problem.
func (d *Driver) dispatch() {
	req := d.parser.Request()

	d.ctx.Reset()
	d.ctx.Request = req
	d.ctx.Arena = d.a

	route, params, status, allow, headOnly := d.table.Resolve(req.Method, req.Path)
	switch status {
	case router.NotFound:
		d.buildProblem(404, "no route matches "+req.Path)
	case router.MethodNotAllowed:
		resp := d.buildProblem(405, "method "+req.Method+" not allowed for "+req.Path)
		resp.Headers.Set("Allow", router.AllowHeader(allow))
	default:
		d.ctx.BindParams(route.Pattern.ParamNames(), params)
		d.ctx.Response = httpresp.New(200)
		if d.chain != nil {
			d.chain.Dispatch(d.ctx, route.Handler)
		} else {
			route.Handler(d.ctx)
		}
	}

	connHeader, hasConn := req.Headers.Get("Connection")
	closeConn := hasConn && (connHeader == "close" || connHeader == "Close")
	if !hasConn {
		closeConn = req.Proto == "HTTP/1.0"
	}
	d.applyDefaultHeaders(closeConn)
	d.closeRequested = closeConn

	if headOnly {
		d.ctx.Response.SerializeHeadInto(d.writeBuf)
	} else {
		d.ctx.Response.SerializeInto(d.writeBuf)
	}
}

// applyDefaultHeaders fills in the response headers spec.md §6 requires on
// every response unless a handler already set them itself: Date (RFC 7231
// IMF-fixdate), Server (the configured identifier), and Connection.
func (d *Driver) applyDefaultHeaders(closeConn bool) {
	h := d.ctx.Response.Headers
	if _, ok := h.Get("Date"); !ok {
		h.Set("Date", time.Now().UTC().Format(httpresp.TimeFormat))
	}
	if _, ok := h.Get("Server"); !ok {
		h.Set("Server", d.serverName)
	}
	if _, ok := h.Get("Connection"); !ok {
		if closeConn {
			h.Set("Connection", "close")
		} else {
			h.Set("Connection", "keep-alive")
		}
	}
}

func (d *Driver) buildProblem(status int, detail string) *httpresp.Response {
	pd := httpresp.NewProblem(status, detail, httpresp.NewInstanceID())
	resp := pd.Response()
	d.ctx.Response = resp
	return resp
}

// writeProblem builds and serializes a problem response outside the normal
// dispatch path — used for parse failures discovered before a request is
// even fully read, where the connection is always closed afterward.
func (d *Driver) writeProblem(status int, detail string) {
	d.buildProblem(status, detail)
	d.applyDefaultHeaders(true)
	d.ctx.Response.SerializeInto(d.writeBuf)
}

// flushWrite drains the write buffer, mirroring handle_connection's two
// write loops (resume-on-entry and post-dispatch) collapsed into one.
func (d *Driver) flushWrite() {
	for !d.writeBuf.Empty() {
		n, err := unix.Write(d.fd, d.writeBuf.ReadableSpan())
		if err != nil {
			if err == unix.EAGAIN {
				d.watchWritable()
				return
			}
			countWriteError()
			d.close()
			return
		}
		if n == 0 {
			break
		}
		d.writeBuf.Consume(n)
	}

	if !d.writeBuf.Empty() {
		d.watchWritable()
		return
	}

	if d.closeRequested {
		countCloseHeader()
		d.close()
		return
	}

	d.closeRequested = false
	d.a.Reset()
	d.parser.Reset()
	d.writeBuf.Clear()

	if d.readBuf.Empty() {
		d.watchReadable()
	}
}

func (d *Driver) watchReadable() {
	d.r.Modify(d.fd, reactor.Readable)
	d.state = Reading
}

func (d *Driver) watchWritable() {
	d.r.Modify(d.fd, reactor.Writable)
	d.state = Writing
}

// close releases the reactor registration (triggering deferred-close
// batching) and tears down connection state. Calling close more than once
// is a no-op.
func (d *Driver) close() {
	if d.closed {
		return
	}
	d.closed = true
	d.state = Closing
	d.disarmIdleTimer()
	d.r.QueueClose(d.fd)
}

func countReadError()  { closeCounters.readError.Add(1) }
func countReadEOF()    { closeCounters.readEOF.Add(1) }
func countParseError() { closeCounters.parseError.Add(1) }
func countWriteError() { closeCounters.writeError.Add(1) }
func countCloseHeader() { closeCounters.closeHdr.Add(1) }
