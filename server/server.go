// Package server wires a config.Config, a router.Table, and a reactor.Pool
// into a runnable listener, generalizing the teacher's app.App (app/app.go)
// and core.Engine.Run from a single-goroutine accept loop into a
// reactor-per-core pool with either SO_REUSEPORT listeners or a single
// listener handing accepted connections off to sibling reactors.
package server

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emberhttp/ember/conn"
	"github.com/emberhttp/ember/config"
	"github.com/emberhttp/ember/reactor"
	"github.com/emberhttp/ember/router"
	"github.com/emberhttp/ember/timer"
)

// Server owns the reactor pool, the routing table, and per-reactor
// listeners for the lifetime of one process.
type Server struct {
	cfg   *config.Config
	table *router.Table
	chain *router.Chain

	pool   *reactor.Pool
	wheels []*timer.Wheel

	listenFDs []int
	stopCh    chan struct{}
}

// New returns a Server ready to Start. table must already be Build'd.
// chain may be nil for no middleware.
func New(cfg *config.Config, table *router.Table, chain *router.Chain) *Server {
	return &Server{cfg: cfg, table: table, chain: chain, stopCh: make(chan struct{})}
}

func (s *Server) connConfig() conn.Config {
	cfg := conn.DefaultConfig()
	cfg.IdleTimeout = s.cfg.IdleTimeout
	if s.cfg.ServerName != "" {
		cfg.ServerName = s.cfg.ServerName
	}
	return cfg
}

// Start opens the pool's listeners, wires accept handling, and runs every
// reactor. It returns once every reactor has started; use Run, which adds
// signal handling, to block until shutdown.
func (s *Server) Start() error {
	mode := reactor.ReusePort
	if !s.cfg.ReusePort {
		mode = reactor.SingleListener
	}

	pool, err := reactor.NewPool(s.cfg.Workers, mode)
	if err != nil {
		return fmt.Errorf("server: create reactor pool: %w", err)
	}
	s.pool = pool

	for range pool.Reactors() {
		s.wheels = append(s.wheels, timer.New(100*time.Millisecond))
	}

	if err := s.wireListeners(); err != nil {
		return err
	}

	pool.Start()
	s.startIdleTickers()

	log.Printf("ember: listening on port %d with %d reactors (reuseport=%v)", s.cfg.Port, len(pool.Reactors()), s.cfg.ReusePort)
	return nil
}

func (s *Server) wireListeners() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	reactors := s.pool.Reactors()

	if s.cfg.ReusePort {
		for i, r := range reactors {
			fd, err := reactor.ListenTCP(addr, s.cfg.Backlog, true)
			if err != nil {
				return fmt.Errorf("server: listen (reactor %d): %w", i, err)
			}
			s.listenFDs = append(s.listenFDs, fd)
			if err := s.registerAccept(r, fd, s.wheels[i]); err != nil {
				return fmt.Errorf("server: register listener (reactor %d): %w", i, err)
			}
		}
		return nil
	}

	fd, err := reactor.ListenTCP(addr, s.cfg.Backlog, false)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.listenFDs = append(s.listenFDs, fd)

	acceptor := reactors[0]
	handoff := s.pool.Handoff()
	if err := acceptor.Register(fd, reactor.Readable, reactor.Handler{
		OnReadable: func() {
			acceptor.AcceptLoop(fd, func(connFD int) {
				if !handoff.Offer(connFD) {
					syscall.Close(connFD)
				}
			})
		},
	}); err != nil {
		return fmt.Errorf("server: register listener: %w", err)
	}

	for i, r := range reactors {
		go s.drainHandoff(r, s.wheels[i], handoff)
	}
	return nil
}

// registerAccept binds a listener fd to reactor r, starting a Driver on r
// itself for every accepted connection — the SO_REUSEPORT mode never
// crosses reactors, since the kernel already load-balanced the SYN.
func (s *Server) registerAccept(r *reactor.Reactor, listenFD int, wheel *timer.Wheel) error {
	return r.Register(listenFD, reactor.Readable, reactor.Handler{
		OnReadable: func() {
			r.AcceptLoop(listenFD, func(connFD int) {
				s.startDriver(connFD, r, wheel)
			})
		},
	})
}

// drainHandoff runs on its own goroutine, pulling accepted fds meant for
// reactor r off the shared handoff queue and posting the driver-start work
// onto r's own goroutine — Post is the one reactor method safe to call from
// outside r's own event loop.
func (s *Server) drainHandoff(r *reactor.Reactor, wheel *timer.Wheel, handoff *reactor.HandoffQueue) {
	for {
		fd, ok := handoff.Take(s.stopCh)
		if !ok {
			return
		}
		r.Post(func() {
			s.startDriver(fd, r, wheel)
		})
	}
}

func (s *Server) startDriver(fd int, r *reactor.Reactor, wheel *timer.Wheel) {
	d := conn.New(fd, r, s.table, s.chain, wheel, s.connConfig())
	if err := d.Start(); err != nil {
		syscall.Close(fd)
	}
}

// startIdleTickers arranges for each reactor's timer.Wheel to advance on
// its own goroutine's schedule, but always executes Advance itself via
// Post so wheel state is only ever touched from the owning reactor's
// goroutine.
func (s *Server) startIdleTickers() {
	for i, r := range s.pool.Reactors() {
		go func(r *reactor.Reactor, wheel *timer.Wheel) {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case now := <-ticker.C:
					r.Post(func() { wheel.Advance(now) })
				case <-s.stopCh:
					return
				}
			}
		}(r, s.wheels[i])
	}
}

// Stop signals every reactor to stop and waits up to the configured
// shutdown grace period for in-flight connections to drain.
func (s *Server) Stop() {
	close(s.stopCh)
	if s.pool != nil {
		s.pool.Stop(s.cfg.ShutdownGrace)
	}
	for _, fd := range s.listenFDs {
		syscall.Close(fd)
	}
}

// Run starts the server and blocks until SIGINT or SIGTERM, generalizing
// the teacher's App.Run/awaitSignal (app/app.go) from a fire-and-forget
// os.Exit(0) into an actual graceful Stop.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("ember: received %v, shutting down (grace=%s)", sig, s.cfg.ShutdownGrace)
	s.Stop()
	return nil
}
