//go:build unix && !linux

package server

import (
	"golang.org/x/sys/unix"
)

type pollPoller struct {
	fds   []unix.PollFd
	index map[int]int
}

func newPoller() (poller, error) {
	return &pollPoller{index: make(map[int]int)}, nil
}

func (p *pollPoller) add(fd int) error {
	if _, ok := p.index[fd]; ok {
		return unix.EEXIST
	}
	p.index[fd] = len(p.fds)
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	return nil
}

func (p *pollPoller) remove(fd int) error {
	i, ok := p.index[fd]
	if !ok {
		return unix.ENOENT
	}
	last := len(p.fds) - 1
	if i != last {
		p.fds[i] = p.fds[last]
		p.index[int(p.fds[i].Fd)] = i
	}
	p.fds = p.fds[:last]
	delete(p.index, fd)
	return nil
}

func (p *pollPoller) wait(ready []int) ([]int, error) {
	for {
		n, err := unix.Poll(p.fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ready, err
		}
		for i := range p.fds {
			if n == 0 {
				break
			}
			if p.fds[i].Revents != 0 {
				ready = append(ready, int(p.fds[i].Fd))
				p.fds[i].Revents = 0
				n--
			}
		}
		return ready, nil
	}
}

func (p *pollPoller) close() error {
	p.fds = nil
	p.index = nil
	return nil
}
