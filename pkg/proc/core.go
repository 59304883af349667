package proc

import (
	"context"
	"sync"

	"github.com/cuemby/dockhand/pkg/stream"
	"github.com/cuemby/dockhand/pkg/types"
)

// Handle is the mode-independent surface of a supervised execution.
// Process (line mode), RawProcess (byte mode) and Runner all satisfy
// it; registries hold Handles so they never care which mode a caller
// asked for.
type Handle interface {
	InstanceID() types.InstanceID
	ContainerName() string
	ReadyType() types.OutputReadyType
	IsRunning() bool
	ExitCode() *int
	IsReady() bool
	WaitReady(ctx context.Context) error
	WaitExit(ctx context.Context, desired *int) (*int, error)
}

var closedChan = func() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// core is the backend-agnostic state shared by Process and Runner: exit
// tracking and the ready-criterion plumbing. It holds no reference to a
// concrete OutputStream element type so that line-mode and byte-mode
// processes share one implementation.
type core struct {
	instance      types.InstanceID
	containerName string
	readyType     types.OutputReadyType
	readyChan     <-chan struct{}
	markReady     []func()

	initOnce sync.Once
	initOK   bool

	mu       sync.Mutex
	exitCode *int
	exited   *stream.Latch
}

func newCore(instance types.InstanceID, containerName string, readyType types.OutputReadyType, readyChan <-chan struct{}, markReady ...func()) core {
	if readyChan == nil {
		readyChan = closedChan
	}
	return core{
		instance:      instance,
		containerName: containerName,
		readyType:     readyType,
		readyChan:     readyChan,
		markReady:     markReady,
		exited:        stream.NewLatch(),
	}
}

// InstanceID returns the process-wide unique handle assigned at creation.
func (c *core) InstanceID() types.InstanceID { return c.instance }

// ContainerName returns the container name backing this process, if any
// (plain commands and execs against an unnamed process have none).
func (c *core) ContainerName() string { return c.containerName }

// ReadyType returns the resolved output-ready criterion.
func (c *core) ReadyType() types.OutputReadyType { return c.readyType }

// Initialize wires stdout/stderr sinks exactly once. wire is supplied
// by the backend (pkg/runtime or pkg/remote); its return value is
// cached and returned on every call.
func (c *core) Initialize(wire func() bool) bool {
	c.initOnce.Do(func() {
		c.initOK = wire()
	})
	return c.initOK
}

// IsRunning reports whether an exit code has been observed yet.
func (c *core) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode == nil
}

// ExitCode returns the observed exit code, or nil while still running.
func (c *core) ExitCode() *int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exitCode == nil {
		return nil
	}
	code := *c.exitCode
	return &code
}

// SetExitCode latches the exit code exactly once — later calls are
// no-ops — and forces both output streams' readiness latches, so a
// process that exits before its ready marker still unblocks waiters.
func (c *core) SetExitCode(code int) {
	c.mu.Lock()
	if c.exitCode != nil {
		c.mu.Unlock()
		return
	}
	c.exitCode = &code
	c.mu.Unlock()

	for _, mark := range c.markReady {
		mark()
	}
	c.exited.Trip()
}

// IsReady reports whether the configured ready criterion has resolved.
func (c *core) IsReady() bool {
	select {
	case <-c.readyChan:
		return true
	default:
		return c.exited.Tripped()
	}
}

// WaitReady blocks until the configured criterion resolves or the
// process exits, whichever comes first.
func (c *core) WaitReady(ctx context.Context) error {
	select {
	case <-c.readyChan:
		return nil
	case <-c.exited.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitExit blocks until the exit code is known. If desired is non-nil
// and the observed code differs, it resolves to (nil, nil) — a
// deliberate null result so callers can branch on success without
// string-matching the real code.
func (c *core) WaitExit(ctx context.Context, desired *int) (*int, error) {
	select {
	case <-c.exited.C():
		code := c.ExitCode()
		if desired != nil && (code == nil || *code != *desired) {
			return nil, nil
		}
		return code, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
