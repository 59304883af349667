package proc

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultStopTimeout is the grace period docker stop waits before
// sending SIGKILL, used whenever a caller does not specify one.
const DefaultStopTimeout = 15 * time.Second

// MinStopTimeout is the floor enforced on any caller-supplied timeout;
// docker itself refuses sub-second grace periods.
const MinStopTimeout = 1 * time.Second

// StopFunc issues the backend-specific stop protocol (locally, `docker
// stop --time T name`; remotely, the equivalent RPC) and returns once
// the daemon has acknowledged it, or an error if the command failed.
type StopFunc func(ctx context.Context, containerName string, timeout time.Duration) error

// Runner is a Process with the facets that only apply to a supervised
// container: the image it was started from, the daemon-assigned
// container ID once known, and the stop protocol. Image, Ports,
// Network and Hostname are fixed at construction; the ID and IP arrive
// asynchronously (cidfile locally, start response remotely) and are
// read through their accessors.
type Runner struct {
	*Process

	Image    string
	Ports    []string
	Network  *string
	Hostname *string

	stopFn StopFunc

	mu      sync.Mutex
	id      *string
	ip      *string
	stopped bool
}

// NewRunner wraps a Process with container facets and a stop closure
// supplied by the owning backend.
func NewRunner(p *Process, image string, ports []string, network, hostname *string, stop StopFunc) *Runner {
	return &Runner{
		Process:  p,
		Image:    image,
		Ports:    ports,
		Network:  network,
		Hostname: hostname,
		stopFn:   stop,
	}
}

// SetID records the daemon-assigned container ID once the backend has
// resolved it.
func (r *Runner) SetID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.id = &id
}

// ContainerID returns the daemon-assigned container ID, or nil while
// the post-start probe is still running.
func (r *Runner) ContainerID() *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

// SetIP records the container's address on its network.
func (r *Runner) SetIP(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ip = &ip
}

// IPAddress returns the container's address on its network, or nil if
// unknown (no network, or the inspect has not completed).
func (r *Runner) IPAddress() *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ip
}

// Stop issues the stop protocol with the given grace timeout, clamped
// to MinStopTimeout, defaulting to DefaultStopTimeout when timeout <=
// 0. It is safe to call more than once; only the first call reaches
// the backend.
func (r *Runner) Stop(ctx context.Context, timeout time.Duration) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.mu.Unlock()

	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	if timeout < MinStopTimeout {
		timeout = MinStopTimeout
	}
	if r.stopFn == nil {
		return fmt.Errorf("proc: runner %s has no stop function wired", r.ContainerName())
	}
	return r.stopFn(ctx, r.ContainerName(), timeout)
}
