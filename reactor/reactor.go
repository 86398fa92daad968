// Package reactor implements a single-threaded, edge-triggered readiness
// loop: one reactor owns a kernel-level interest set (epoll on Linux,
// kqueue on BSD/Darwin) and invokes a per-descriptor callback whenever the
// kernel reports that descriptor readable or writable. Generalized from the
// teacher's core/poller package, which wraps the same two backends but
// registers every descriptor level-triggered and returns bare slices of
// ready fds for the caller to dispatch; Ember instead binds a Handler at
// register time, runs edge-triggered (EPOLLET / EV_CLEAR), and owns the
// deferred-close and EMFILE-recovery machinery the teacher's poller leaves
// to its caller.
package reactor

import (
	"errors"
	"fmt"
	"runtime"
)

// Interest is the set of readiness conditions a registered descriptor is
// watched for.
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable
)

// Handler is bound to one descriptor at Register time. OnReadable and
// OnWritable are edge-triggered: the reactor will not invoke them again for
// the same readiness condition until the callback returns after having
// drained the descriptor to EAGAIN, per spec.md §4.1's critical contract.
// OnError fires on each error event (EPOLLERR/EPOLLHUP/EPOLLRDHUP or the
// kqueue EV_EOF equivalent) in place of OnReadable/OnWritable. The reactor
// does not unregister the descriptor itself; the handler does, typically
// via QueueClose.
type Handler struct {
	OnReadable func()
	OnWritable func()
	OnError    func()
}

// fdLifecycle is the per-descriptor state machine spec.md §4.1 names:
// Unregistered -> Registered(mask) -> PendingClose -> Closed. Transitions
// are explicit; re-registering a descriptor after Closed requires a fresh
// Register call, never a reuse of the old slot's state.
type fdLifecycle uint8

const (
	fdUnregistered fdLifecycle = iota
	fdRegistered
	fdPendingClose
	fdClosed
)

type fdState struct {
	lifecycle fdLifecycle
	interest  Interest
	handler   Handler
}

// ErrAlreadyRegistered is returned by Register when fd already has an entry
// in Registered state.
var ErrAlreadyRegistered = errors.New("reactor: fd already registered")

// maxInlineCloseBudget bounds how many queued closes Run() executes
// immediately per tick before deferring the rest to amortize the close(2)
// syscall cost over many ticks, per spec.md §4.1's "first 2 per tick"
// example.
const maxInlineCloseBudget = 2

// Reactor is not safe for concurrent use except for Post, which is the one
// method other goroutines may call while Run is in progress — every other
// method must be called from the goroutine running Run, matching the
// share-nothing, one-thread-per-reactor model.
type Reactor struct {
	backend *backend

	fds []fdState // dense, indexed by fd; grown on demand, never shrunk

	closeQueue []int
	postQueue  chan func()

	reserveFD int

	stopCh chan struct{}
	doneCh chan struct{}

	onAcceptError func(err error)
}

// New opens a platform readiness primitive and a reserve file descriptor
// for EMFILE recovery, and returns a Reactor ready to have descriptors
// registered before Run is called.
func New() (*Reactor, error) {
	b, err := newBackend()
	if err != nil {
		return nil, fmt.Errorf("reactor: open backend: %w", err)
	}
	reserve, err := openReserveFD()
	if err != nil {
		b.close()
		return nil, fmt.Errorf("reactor: open reserve fd: %w", err)
	}
	return &Reactor{
		backend:   b,
		postQueue: make(chan func(), 1024),
		reserveFD: reserve,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

func (r *Reactor) ensureCapacity(fd int) {
	if fd < len(r.fds) {
		return
	}
	grown := make([]fdState, fd+1)
	copy(grown, r.fds)
	r.fds = grown
}

// Register inserts interest for fd, binding handler to invoke on readiness.
// It fails if fd is already Registered.
func (r *Reactor) Register(fd int, interest Interest, handler Handler) error {
	r.ensureCapacity(fd)
	if r.fds[fd].lifecycle == fdRegistered {
		return ErrAlreadyRegistered
	}
	if err := r.backend.add(fd, interest); err != nil {
		return err
	}
	r.fds[fd] = fdState{lifecycle: fdRegistered, interest: interest, handler: handler}
	return nil
}

// Modify updates fd's interest mask without re-registering its handler.
func (r *Reactor) Modify(fd int, interest Interest) error {
	if fd >= len(r.fds) || r.fds[fd].lifecycle != fdRegistered {
		return fmt.Errorf("reactor: modify on unregistered fd %d", fd)
	}
	if err := r.backend.modify(fd, interest); err != nil {
		return err
	}
	r.fds[fd].interest = interest
	return nil
}

// Unregister removes interest in fd. The descriptor itself is closed by the
// caller, or via QueueClose.
func (r *Reactor) Unregister(fd int) error {
	if fd >= len(r.fds) || r.fds[fd].lifecycle != fdRegistered {
		return fmt.Errorf("reactor: unregister on unregistered fd %d", fd)
	}
	if err := r.backend.remove(fd); err != nil {
		return err
	}
	r.fds[fd] = fdState{lifecycle: fdUnregistered}
	return nil
}

// QueueClose marks fd PendingClose and enqueues it for deferred closing.
// Each Run tick closes at most maxInlineCloseBudget queued descriptors; the
// rest stay queued for later ticks, and whatever remains when Run stops is
// closed then.
func (r *Reactor) QueueClose(fd int) {
	if fd < len(r.fds) && r.fds[fd].lifecycle == fdRegistered {
		r.backend.remove(fd)
		r.fds[fd].lifecycle = fdPendingClose
	}
	r.closeQueue = append(r.closeQueue, fd)
}

// Post enqueues task to run on the reactor's own goroutine between
// readiness batches. Unlike every other method, Post is safe to call from
// any goroutine.
func (r *Reactor) Post(task func()) {
	select {
	case r.postQueue <- task:
	case <-r.doneCh:
	}
}

// OnAcceptError sets the callback invoked when the listener's accept loop
// hits any accept error other than EAGAIN/EWOULDBLOCK (transient ones such
// as EMFILE/ENFILE/ENOMEM/ENOBUFS included) so the caller can increment the
// corresponding metric; the reactor itself always retries on
// the next readiness notification rather than unregistering the listener.
func (r *Reactor) OnAcceptError(fn func(err error)) {
	r.onAcceptError = fn
}

// Stop requests Run to return after completing its current tick. It does
// not close any registered descriptor; callers drain and close connections
// during their own shutdown sequence before or after calling Stop.
func (r *Reactor) Stop() {
	close(r.stopCh)
}

// Run blocks, alternating between waiting on the readiness primitive and
// draining deferred closes and posted tasks, until Stop is called.
func (r *Reactor) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.doneCh)
	defer r.backend.close()
	defer closeFD(r.reserveFD)

	for {
		select {
		case <-r.stopCh:
			r.drainCloses(len(r.closeQueue))
			return
		default:
		}

		events, err := r.backend.wait(defaultWaitTimeoutMillis)
		if err != nil {
			continue
		}

		for _, ev := range events {
			if ev.fd >= len(r.fds) {
				continue
			}
			state := &r.fds[ev.fd]
			if state.lifecycle != fdRegistered {
				continue
			}
			if ev.errored && state.handler.OnError != nil {
				state.handler.OnError()
				continue
			}
			if ev.readable && state.handler.OnReadable != nil {
				state.handler.OnReadable()
			}
			if ev.writable && state.handler.OnWritable != nil {
				state.handler.OnWritable()
			}
		}

		r.drainCloses(maxInlineCloseBudget)
		r.drainPosts()
	}
}

func (r *Reactor) drainCloses(budget int) {
	n := len(r.closeQueue)
	if budget > n {
		budget = n
	}
	for i := 0; i < budget; i++ {
		fd := r.closeQueue[i]
		closeFD(fd)
		if fd < len(r.fds) {
			r.fds[fd].lifecycle = fdClosed
		}
	}
	r.closeQueue = r.closeQueue[budget:]
}

func (r *Reactor) drainPosts() {
	for {
		select {
		case task := <-r.postQueue:
			task()
		default:
			return
		}
	}
}

// event is the backend-neutral readiness notification Run consumes.
type event struct {
	fd       int
	readable bool
	writable bool
	errored  bool
}

const defaultWaitTimeoutMillis = 1000
