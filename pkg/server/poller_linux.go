//go:build linux

package server

import (
	"golang.org/x/sys/unix"
)

const maxEvents = 128

type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

func newPoller() (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: epfd, events: make([]unix.EpollEvent, maxEvents)}, nil
}

func (p *epollPoller) add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLRDHUP, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) wait(ready []int) ([]int, error) {
	for {
		n, err := unix.EpollWait(p.epfd, p.events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ready, err
		}
		for i := 0; i < n; i++ {
			ready = append(ready, int(p.events[i].Fd))
		}
		return ready, nil
	}
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}
