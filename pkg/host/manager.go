package host

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/dockhand/pkg/commands"
	"github.com/cuemby/dockhand/pkg/events"
	"github.com/cuemby/dockhand/pkg/log"
	"github.com/cuemby/dockhand/pkg/metrics"
	"github.com/cuemby/dockhand/pkg/proc"
	"github.com/cuemby/dockhand/pkg/types"
)

// nextInstance allocates instance IDs. It is process-wide, not
// per-Manager, so IDs stay unique even when several hosts coexist.
var nextInstance atomic.Int64

// NewSessionID mints the opaque identifier that namespaces one
// Manager's ephemeral artifacts (auto-generated container names,
// cidfiles).
func NewSessionID() types.SessionID {
	return types.SessionID(uuid.NewString()[:8])
}

// Manager is a Host: session identity, the runner/process registries,
// and lifecycle bookkeeping, layered over exactly one Backend. All
// methods are safe for concurrent use; the registries are the only
// shared mutable state.
type Manager struct {
	sessionID    types.SessionID
	backend      Backend
	broker       *events.Broker
	networkCount func() int

	mu        sync.Mutex
	runners   map[types.InstanceID]*proc.Runner
	processes map[types.InstanceID]proc.Handle
	closed    bool
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithBroker publishes lifecycle events to b.
func WithBroker(b *events.Broker) Option {
	return func(m *Manager) { m.broker = b }
}

// WithSessionID overrides the auto-minted session ID.
func WithSessionID(id types.SessionID) Option {
	return func(m *Manager) { m.sessionID = id }
}

// WithNetworkCounter supplies the network count sampled by
// metrics.Collector; backends without a network registry leave it
// unset and report zero.
func WithNetworkCounter(f func() int) Option {
	return func(m *Manager) { m.networkCount = f }
}

// NewManager wraps a Backend. Most callers use the convenience
// constructors in the module root instead.
func NewManager(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		sessionID: NewSessionID(),
		backend:   backend,
		runners:   make(map[types.InstanceID]*proc.Runner),
		processes: make(map[types.InstanceID]proc.Handle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SessionID returns the identifier namespacing this host's artifacts.
func (m *Manager) SessionID() types.SessionID { return m.sessionID }

// Backend exposes the wrapped Backend for callers that need
// backend-specific extras.
func (m *Manager) Backend() Backend { return m.backend }

// CheckDaemon reports whether the docker daemon answers.
func (m *Manager) CheckDaemon(ctx context.Context) bool {
	return m.backend.CheckDaemon(ctx)
}

// Commands exposes the helper operations of the wrapped backend.
func (m *Manager) Commands() commands.Commands {
	return m.backend.Commands()
}

func (m *Manager) publish(ev events.Event) {
	if m.broker == nil {
		return
	}
	ev.SessionID = m.sessionID
	m.broker.Publish(ev)
}

// Create creates a container without starting it. Unlike Run, a nil
// CleanContainer here resolves to false: created containers are left
// behind by default so the caller can start them later.
func (m *Manager) Create(ctx context.Context, spec RunSpec) (*ContainerInfo, error) {
	if err := m.prepare(&spec, false); err != nil {
		return nil, err
	}
	return m.backend.Create(ctx, spec)
}

// Run starts a container and returns once its Runner is ready by the
// criterion in opts (immediately, when no readiness predicates are
// given). The Runner is registered before the ready wait, so it is
// observable by instance ID even if ctx expires first. A nil
// CleanContainer resolves to true: run containers self-destruct on
// exit via --rm.
func (m *Manager) Run(ctx context.Context, spec RunSpec, opts Options) (*proc.Runner, error) {
	if err := m.prepare(&spec, true); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()
	instance := types.InstanceID(nextInstance.Add(1))
	if spec.ContainerName == "" {
		spec.ContainerName = types.ContainerName(m.sessionID, instance)
	}

	runner, err := m.backend.Run(ctx, instance, spec, opts)
	if err != nil {
		return nil, err
	}
	timer.ObserveDuration(metrics.ContainerCreateDuration)

	m.mu.Lock()
	m.runners[runner.InstanceID()] = runner
	m.mu.Unlock()

	m.publish(events.Event{
		Type:          events.EventRunnerStarted,
		InstanceID:    runner.InstanceID(),
		ContainerName: runner.ContainerName(),
	})
	m.watchExit(runner)

	if err := runner.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("host: runner %d never became ready: %w", runner.InstanceID(), err)
	}
	m.publish(events.Event{
		Type:          events.EventProcessReady,
		InstanceID:    runner.InstanceID(),
		ContainerName: runner.ContainerName(),
	})
	return runner, nil
}

// Exec runs cmd inside the named container, which must be running, and
// returns once the Process is ready by the criterion in opts.
func (m *Manager) Exec(ctx context.Context, containerName, cmd string, args []string, opts Options) (*proc.Process, error) {
	timer := metrics.NewTimer()
	instance := types.InstanceID(nextInstance.Add(1))

	process, err := m.backend.Exec(ctx, instance, containerName, cmd, args, opts)
	if err != nil {
		return nil, err
	}
	timer.ObserveDurationVec(metrics.CommandExecDuration, "exec")

	m.register(process)
	if err := process.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("host: exec %d never became ready: %w", process.InstanceID(), err)
	}
	return process, nil
}

// Command runs a bare daemon-level command and returns once the
// Process is ready by the criterion in opts.
func (m *Manager) Command(ctx context.Context, cmd string, args []string, opts Options) (*proc.Process, error) {
	timer := metrics.NewTimer()
	instance := types.InstanceID(nextInstance.Add(1))

	process, err := m.backend.Command(ctx, instance, cmd, args, opts)
	if err != nil {
		return nil, err
	}
	timer.ObserveDurationVec(metrics.CommandExecDuration, "command")

	m.register(process)
	if err := process.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("host: command %d never became ready: %w", process.InstanceID(), err)
	}
	return process, nil
}

// RawCommand is Command with raw byte retention instead of decoded
// lines. limit <= 0 means the byte-mode default capacity.
func (m *Manager) RawCommand(ctx context.Context, cmd string, args []string, limit int) (*proc.RawProcess, error) {
	instance := types.InstanceID(nextInstance.Add(1))
	process, err := m.backend.RawCommand(ctx, instance, cmd, args, limit)
	if err != nil {
		return nil, err
	}
	m.register(process)
	return process, nil
}

// register records a non-container process and arranges the exited
// event.
func (m *Manager) register(h proc.Handle) {
	m.mu.Lock()
	m.processes[h.InstanceID()] = h
	m.mu.Unlock()

	m.publish(events.Event{
		Type:          events.EventProcessStarted,
		InstanceID:    h.InstanceID(),
		ContainerName: h.ContainerName(),
	})
	m.watchExit(h)
}

// watchExit publishes process.exited once h's exit code is known. The
// watcher lives as long as the supervised process, not as long as any
// caller's context.
func (m *Manager) watchExit(h proc.Handle) {
	if m.broker == nil {
		return
	}
	go func() {
		code, err := h.WaitExit(context.Background(), nil)
		if err != nil {
			return
		}
		m.publish(events.Event{
			Type:          events.EventProcessExited,
			InstanceID:    h.InstanceID(),
			ContainerName: h.ContainerName(),
			ExitCode:      code,
		})
	}()
}

// prepare validates and canonicalizes a RunSpec in place.
func (m *Manager) prepare(spec *RunSpec, cleanDefault bool) error {
	if spec.Image == "" {
		return fmt.Errorf("host: image is required")
	}
	ports, err := types.NormalizePorts(spec.Ports)
	if err != nil {
		return fmt.Errorf("host: %w", err)
	}
	spec.Ports = ports
	clean := spec.CleanOrDefault(cleanDefault)
	spec.CleanContainer = &clean
	return nil
}

// StopByName issues the stop protocol against a container by name.
func (m *Manager) StopByName(ctx context.Context, name string, timeout time.Duration) error {
	timer := metrics.NewTimer()
	if err := m.backend.StopByName(ctx, name, timeout); err != nil {
		return err
	}
	timer.ObserveDuration(metrics.ContainerStopDuration)
	m.publish(events.Event{Type: events.EventRunnerStopped, ContainerName: name})
	return nil
}

// ContainerIDByName resolves a container's opaque ID from its name.
func (m *Manager) ContainerIDByName(ctx context.Context, name string) (string, error) {
	return m.backend.ContainerIDByName(ctx, name)
}

// RunnerByInstanceID returns the registered Runner, or nil. Exited
// runners stay registered until Forget is called.
func (m *Manager) RunnerByInstanceID(id types.InstanceID) *proc.Runner {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runners[id]
}

// ProcessByInstanceID returns the registered non-container process, or
// nil.
func (m *Manager) ProcessByInstanceID(id types.InstanceID) proc.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processes[id]
}

// Runners returns a snapshot of every registered runner.
func (m *Manager) Runners() []*proc.Runner {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*proc.Runner, 0, len(m.runners))
	for _, r := range m.runners {
		out = append(out, r)
	}
	return out
}

// Processes returns a snapshot of every registered non-container
// process.
func (m *Manager) Processes() []proc.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]proc.Handle, 0, len(m.processes))
	for _, p := range m.processes {
		out = append(out, p)
	}
	return out
}

// Forget drops a runner or process from the registries. Registries
// never evict on their own — exited entries stay observable — so
// long-lived hosts starting many short-lived processes call Forget to
// bound growth.
func (m *Manager) Forget(id types.InstanceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runners, id)
	delete(m.processes, id)
}

// RunnerSnapshots implements metrics.Snapshotter.
func (m *Manager) RunnerSnapshots() []metrics.RunnerSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]metrics.RunnerSnapshot, 0, len(m.runners))
	for _, r := range m.runners {
		out = append(out, metrics.RunnerSnapshot{Running: r.IsRunning()})
	}
	return out
}

// ProcessSnapshots implements metrics.Snapshotter.
func (m *Manager) ProcessSnapshots() []metrics.ProcessSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]metrics.ProcessSnapshot, 0, len(m.processes))
	for _, p := range m.processes {
		out = append(out, metrics.ProcessSnapshot{Running: p.IsRunning()})
	}
	return out
}

// NetworkCount implements metrics.Snapshotter.
func (m *Manager) NetworkCount() int {
	if m.networkCount == nil {
		return 0
	}
	return m.networkCount()
}

// Close releases the backend's resources. Running containers are left
// alone; --rm containers clean themselves up on exit. Close is
// idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.publish(events.Event{Type: events.EventHostClosed})
	if err := m.backend.Close(); err != nil {
		logger := log.WithSessionID(string(m.sessionID))
		logger.Warn().Err(err).Msg("backend close failed")
		return err
	}
	return nil
}
