package reactor

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// ListenTCP creates a non-blocking, listening TCP socket bound to addr
// ("host:port", host may be empty for all interfaces). When reusePort is
// true it sets SO_REUSEPORT so a Pool can open one such listener per
// reactor and let the kernel hash incoming SYNs across them — spec.md
// §4.2's preferred mode. When false, the caller owns the single resulting
// socket and is expected to hand accepted connections to sibling reactors
// through a HandoffQueue.
func ListenTCP(addr string, backlog int, reusePort bool) (int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return -1, fmt.Errorf("reactor: invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return -1, fmt.Errorf("reactor: invalid port %q: %w", portStr, err)
	}

	var ip [4]byte
	if host != "" && host != "0.0.0.0" {
		parsed := net.ParseIP(host)
		if parsed == nil {
			return -1, fmt.Errorf("reactor: invalid listen host %q", host)
		}
		v4 := parsed.To4()
		if v4 == nil {
			return -1, fmt.Errorf("reactor: only IPv4 listen addresses are supported, got %q", host)
		}
		copy(ip[:], v4)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("reactor: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("reactor: SO_REUSEADDR: %w", err)
	}
	if reusePort {
		if err := setReusePort(fd); err != nil {
			unix.Close(fd)
			return -1, fmt.Errorf("reactor: SO_REUSEPORT: %w", err)
		}
	}

	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("reactor: bind %s: %w", addr, err)
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("reactor: listen: %w", err)
	}

	return fd, nil
}

// AcceptOne accepts one pending connection from listenFD as a non-blocking
// socket, or returns an error — including EAGAIN once the backlog is
// drained, which the caller's accept loop treats as "stop for this
// readiness batch".
func AcceptOne(listenFD int) (int, error) {
	fd, _, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	return fd, err
}
