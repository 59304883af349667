package host

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/dockhand/pkg/commands"
	"github.com/cuemby/dockhand/pkg/events"
	"github.com/cuemby/dockhand/pkg/proc"
	"github.com/cuemby/dockhand/pkg/stream"
	"github.com/cuemby/dockhand/pkg/types"
)

// fakeBackend records what the Manager asked for and returns processes
// that are immediately ready.
type fakeBackend struct {
	lastRunSpec  RunSpec
	lastInstance types.InstanceID
	lastExecName string
	lastCmd      string
	stopped      []string
	closed       bool
}

func (f *fakeBackend) CheckDaemon(context.Context) bool { return true }

func (f *fakeBackend) Create(_ context.Context, spec RunSpec) (*ContainerInfo, error) {
	f.lastRunSpec = spec
	return &ContainerInfo{ContainerName: spec.ContainerName, ID: "cid", Image: spec.ImageRef()}, nil
}

func (f *fakeBackend) Run(_ context.Context, instance types.InstanceID, spec RunSpec, opts Options) (*proc.Runner, error) {
	f.lastRunSpec = spec
	f.lastInstance = instance
	readyType, capacity := opts.Resolve()
	p := proc.NewProcess(instance, spec.ContainerName, readyType, opts.StdoutReady, opts.StderrReady, capacity)
	return proc.NewRunner(p, spec.ImageRef(), spec.Ports, nil, nil, func(ctx context.Context, name string, _ time.Duration) error {
		f.stopped = append(f.stopped, name)
		return nil
	}), nil
}

func (f *fakeBackend) Exec(_ context.Context, instance types.InstanceID, containerName, cmd string, _ []string, opts Options) (*proc.Process, error) {
	f.lastExecName = containerName
	readyType, capacity := opts.Resolve()
	return proc.NewProcess(instance, containerName, readyType, opts.StdoutReady, opts.StderrReady, capacity), nil
}

func (f *fakeBackend) Command(_ context.Context, instance types.InstanceID, cmd string, _ []string, opts Options) (*proc.Process, error) {
	f.lastCmd = cmd
	readyType, capacity := opts.Resolve()
	return proc.NewProcess(instance, "", readyType, opts.StdoutReady, opts.StderrReady, capacity), nil
}

func (f *fakeBackend) RawCommand(_ context.Context, instance types.InstanceID, cmd string, _ []string, limit int) (*proc.RawProcess, error) {
	f.lastCmd = cmd
	return proc.NewRawProcess(instance, "", types.ReadyStartsReady, nil, nil, limit), nil
}

func (f *fakeBackend) StopByName(_ context.Context, name string, _ time.Duration) error {
	f.stopped = append(f.stopped, name)
	return nil
}

func (f *fakeBackend) ContainerIDByName(context.Context, string) (string, error) { return "cid", nil }
func (f *fakeBackend) Commands() commands.Commands                               { return nil }
func (f *fakeBackend) Close() error                                              { f.closed = true; return nil }

func TestManagerRunRegistersAndDefaults(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend, WithSessionID("sess1"))

	runner, err := m.Run(context.Background(), RunSpec{
		Image: "postgres",
		Ports: []string{"5432", "5432:5432"},
	}, Options{})
	require.NoError(t, err)
	require.NotNil(t, runner)

	// auto-generated name is namespaced by session and instance.
	require.True(t, strings.HasPrefix(runner.ContainerName(), "dockhand-sess1-"), runner.ContainerName())

	// ports were normalized and deduplicated before reaching the backend.
	require.Equal(t, []string{"5432:5432"}, backend.lastRunSpec.Ports)

	// run defaults to self-cleaning containers.
	require.NotNil(t, backend.lastRunSpec.CleanContainer)
	require.True(t, *backend.lastRunSpec.CleanContainer)

	// registered and observable, even while running.
	require.Same(t, runner, m.RunnerByInstanceID(runner.InstanceID()))
	require.True(t, runner.IsRunning())
}

func TestManagerCreateDefaultsToKeep(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend)

	info, err := m.Create(context.Background(), RunSpec{ContainerName: "db", Image: "postgres"})
	require.NoError(t, err)
	require.Equal(t, "db", info.ContainerName)

	require.NotNil(t, backend.lastRunSpec.CleanContainer)
	require.False(t, *backend.lastRunSpec.CleanContainer)
}

func TestManagerRunRejectsMissingImage(t *testing.T) {
	m := NewManager(&fakeBackend{})
	_, err := m.Run(context.Background(), RunSpec{}, Options{})
	require.Error(t, err)
}

func TestManagerRunWaitsForReadiness(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend)

	// a predicate that never matches plus a short deadline: Run must
	// give up with the context, not return an unready runner.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := m.Run(ctx, RunSpec{Image: "postgres"}, Options{
		StdoutReady: func(_ *stream.OutputStream[string], _ string) bool { return false },
	})
	require.Error(t, err)
}

func TestManagerInstanceIDsMonotonic(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend)

	first, err := m.Run(context.Background(), RunSpec{Image: "a"}, Options{})
	require.NoError(t, err)
	second, err := m.Run(context.Background(), RunSpec{Image: "b"}, Options{})
	require.NoError(t, err)
	require.Greater(t, int64(second.InstanceID()), int64(first.InstanceID()))
}

func TestManagerExecAndCommandRegisterProcesses(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend)

	p, err := m.Exec(context.Background(), "db", "echo", []string{"hi"}, Options{})
	require.NoError(t, err)
	require.Equal(t, "db", backend.lastExecName)
	require.Same(t, proc.Handle(p), m.ProcessByInstanceID(p.InstanceID()))

	c, err := m.Command(context.Background(), "ps", nil, Options{})
	require.NoError(t, err)
	require.Equal(t, "ps", backend.lastCmd)
	require.NotNil(t, m.ProcessByInstanceID(c.InstanceID()))
}

func TestManagerForget(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend)

	runner, err := m.Run(context.Background(), RunSpec{Image: "a"}, Options{})
	require.NoError(t, err)
	runner.SetExitCode(0)

	// exited runners stay registered until explicitly forgotten.
	require.NotNil(t, m.RunnerByInstanceID(runner.InstanceID()))
	m.Forget(runner.InstanceID())
	require.Nil(t, m.RunnerByInstanceID(runner.InstanceID()))
}

func TestManagerPublishesLifecycleEvents(t *testing.T) {
	broker := events.NewBroker()
	sub, cancel := broker.Subscribe()
	defer cancel()

	backend := &fakeBackend{}
	m := NewManager(backend, WithBroker(broker), WithSessionID("sess-ev"))

	runner, err := m.Run(context.Background(), RunSpec{Image: "a"}, Options{})
	require.NoError(t, err)
	runner.SetExitCode(3)

	seen := map[events.EventType]events.Event{}
	deadline := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case ev := <-sub:
			seen[ev.Type] = ev
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}

	require.Contains(t, seen, events.EventRunnerStarted)
	require.Contains(t, seen, events.EventProcessReady)
	require.Contains(t, seen, events.EventProcessExited)
	require.Equal(t, types.SessionID("sess-ev"), seen[events.EventRunnerStarted].SessionID)
	require.NotNil(t, seen[events.EventProcessExited].ExitCode)
	require.Equal(t, 3, *seen[events.EventProcessExited].ExitCode)
}

func TestManagerStopByName(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend)

	require.NoError(t, m.StopByName(context.Background(), "db", time.Second))
	require.Equal(t, []string{"db"}, backend.stopped)
}

func TestManagerCloseIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend)

	require.NoError(t, m.Close())
	require.True(t, backend.closed)
	backend.closed = false
	require.NoError(t, m.Close())
	require.False(t, backend.closed)
}

func TestManagerSnapshots(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend, WithNetworkCounter(func() int { return 2 }))

	runner, err := m.Run(context.Background(), RunSpec{Image: "a"}, Options{})
	require.NoError(t, err)
	_, err = m.Command(context.Background(), "ps", nil, Options{})
	require.NoError(t, err)
	runner.SetExitCode(0)

	runners := m.RunnerSnapshots()
	require.Len(t, runners, 1)
	require.False(t, runners[0].Running)

	procs := m.ProcessSnapshots()
	require.Len(t, procs, 1)
	require.True(t, procs[0].Running)

	require.Equal(t, 2, m.NetworkCount())
}
