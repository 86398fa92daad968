package reactor

import "golang.org/x/sys/unix"

// openReserveFD opens the thread-local reserve descriptor spec.md §4.1
// describes: a handle kept open to /dev/null purely so that, when accept
// returns EMFILE, the reactor has one descriptor it can close to free up
// room for an accept-and-immediately-close recovery cycle.
func openReserveFD() (int, error) {
	return unix.Open("/dev/null", unix.O_RDONLY, 0)
}

func closeFD(fd int) error {
	if fd < 0 {
		return nil
	}
	return unix.Close(fd)
}

// recoverFromEMFILE implements the EMFILE recovery sequence: close the
// reserve descriptor to free one slot, accept and immediately close one
// pending connection (draining the backlog and signaling the client), then
// reopen the reserve descriptor so the next EMFILE still has a slot to
// spend.
func (r *Reactor) recoverFromEMFILE(listenFD int) {
	closeFD(r.reserveFD)
	r.reserveFD = -1

	if fd, _, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK); err == nil {
		closeFD(fd)
	}

	if fd, err := openReserveFD(); err == nil {
		r.reserveFD = fd
	}
	countEMFILERecovery()
}

// AcceptLoop drains every pending connection on listenFD, calling onConn
// for each one accepted, until accept returns an error. A transient error
// (EMFILE/ENFILE/ENOMEM/ENOBUFS/EAGAIN) just ends this batch — the listener
// stays registered and the next readiness notification retries, per
// spec.md §4.1. EMFILE additionally runs the reserve-fd recovery cycle
// before returning.
func (r *Reactor) AcceptLoop(listenFD int, onConn func(fd int)) {
	for {
		fd, err := AcceptOne(listenFD)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			countAcceptError(err)
			if IsEMFILE(err) {
				r.recoverFromEMFILE(listenFD)
			}
			if r.onAcceptError != nil {
				r.onAcceptError(err)
			}
			return
		}
		onConn(fd)
	}
}

// IsTransientAcceptError reports whether err is one of the accept(2)
// failures spec.md §4.1 says must not cause the listener to be
// unregistered: the reactor breaks the current accept batch and retries on
// the next readiness notification instead.
func IsTransientAcceptError(err error) bool {
	switch err {
	case unix.EMFILE, unix.ENFILE, unix.ENOMEM, unix.ENOBUFS, unix.EAGAIN, unix.EINTR, unix.ECONNABORTED:
		return true
	default:
		return false
	}
}

// IsEMFILE reports whether err is specifically a file-descriptor
// exhaustion error, the trigger for recoverFromEMFILE.
func IsEMFILE(err error) bool {
	return err == unix.EMFILE
}

func setReusePort(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}
