package server

import (
	"fmt"
	"net"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"mercator-hq/webserv/pkg/site"
)

// DefaultBacklog is the listen queue length.
const DefaultBacklog = 128

// listener is one bound, listening socket.
type listener struct {
	fd int

	// addr is the configured address used for server block resolution;
	// bound is what the kernel gave us, which differs for port 0.
	addr  site.ListenAddr
	bound site.ListenAddr
}

// RegisterListener creates a non-blocking listening socket on host:port with
// SO_REUSEADDR set. An empty or unspecified host binds all IPv4 interfaces.
func RegisterListener(host string, port, backlog int) (int, error) {
	addrText := net.JoinHostPort(host, strconv.Itoa(port))
	if backlog <= 0 {
		backlog = DefaultBacklog
	}

	sa, family, err := sockaddr(host, port)
	if err != nil {
		return -1, &ListenError{Addr: addrText, Op: "resolve", Err: err}
	}

	syscall.ForkLock.RLock()
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err == nil {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return -1, &ListenError{Addr: addrText, Op: "socket", Err: err}
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, &ListenError{Addr: addrText, Op: "setsockopt", Err: err}
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, &ListenError{Addr: addrText, Op: "set nonblock", Err: err}
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, &BindError{Addr: addrText, Err: err}
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, &ListenError{Addr: addrText, Op: "listen", Err: err}
	}
	return fd, nil
}

// sockaddr resolves host to a socket address. Names are looked up once.
func sockaddr(host string, port int) (unix.Sockaddr, int, error) {
	if port < 0 || port > 65535 {
		return nil, 0, fmt.Errorf("port %d out of range", port)
	}
	if host == "" || host == "*" {
		return &unix.SockaddrInet4{Port: port}, unix.AF_INET, nil
	}

	ip := net.ParseIP(host)
	if ip == nil {
		addrs, err := net.LookupIP(host)
		if err != nil {
			return nil, 0, err
		}
		if len(addrs) == 0 {
			return nil, 0, fmt.Errorf("no addresses for %q", host)
		}
		ip = addrs[0]
		for _, a := range addrs {
			if a.To4() != nil {
				ip = a
				break
			}
		}
	}

	if ip4 := ip.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], ip4)
		return sa, unix.AF_INET, nil
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return sa, unix.AF_INET6, nil
}

// boundAddr reports the local address of fd.
func boundAddr(fd int) (site.ListenAddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return site.ListenAddr{}, err
	}
	host, port := sockaddrHostPort(sa)
	return site.ListenAddr{Host: host, Port: port}, nil
}

// sockaddrHostPort formats a socket address.
func sockaddrHostPort(sa unix.Sockaddr) (string, int) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(a.Addr[:]).String(), a.Port
	case *unix.SockaddrInet6:
		return net.IP(a.Addr[:]).String(), a.Port
	default:
		return "", 0
	}
}
