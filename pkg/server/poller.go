package server

// poller waits for read readiness on a set of descriptors.
type poller interface {
	add(fd int) error
	remove(fd int) error

	// wait blocks until at least one descriptor is readable and appends the
	// ready descriptors to ready. Interrupted waits are retried internally.
	wait(ready []int) ([]int, error)

	close() error
}
