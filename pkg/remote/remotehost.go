package remote

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cuemby/dockhand/pkg/commands"
	"github.com/cuemby/dockhand/pkg/host"
	"github.com/cuemby/dockhand/pkg/proc"
	"github.com/cuemby/dockhand/pkg/stream"
	"github.com/cuemby/dockhand/pkg/types"
)

var _ host.Backend = (*RemoteHost)(nil)

// RemoteHost is the Backend that drives a dockhand peer over HTTP
// instead of shelling out locally. Processes it returns are mirrors:
// their streams fill by offset polling, their exit codes arrive over a
// blocking /wait_exit call, and readiness resolves against the mirror
// exactly as it would against a local process.
type RemoteHost struct {
	Client *Client
}

// NewRemoteHost authenticates against baseURL and asks the peer to
// initialize, failing if either is refused.
func NewRemoteHost(ctx context.Context, baseURL string, creds Credentials) (*RemoteHost, error) {
	client := NewClient(baseURL, creds)
	if err := client.Authenticate(ctx); err != nil {
		return nil, err
	}
	h := &RemoteHost{Client: client}
	ok, err := h.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("remote: peer refused to initialize")
	}
	return h, nil
}

// Initialize asks the peer to prepare its local docker host.
func (h *RemoteHost) Initialize(ctx context.Context) (bool, error) {
	var ok bool
	err := h.Client.get(ctx, "/initialize", nil, &ok)
	return ok, err
}

// CheckDaemon reports whether the peer's docker daemon answers.
func (h *RemoteHost) CheckDaemon(ctx context.Context) bool {
	var ok bool
	if err := h.Client.get(ctx, "/check_daemon", nil, &ok); err != nil {
		return false
	}
	return ok
}

// Close asks the peer to release the session's server-side resources.
func (h *RemoteHost) Close() error {
	var ok bool
	return h.Client.get(context.Background(), "/close", nil, &ok)
}

// Commands exposes the helper operations, forwarded through the
// peer's own command surface.
func (h *RemoteHost) Commands() commands.Commands {
	return &RemoteCommands{host: h}
}

// ContainerIDByName resolves a container's ID on the peer.
func (h *RemoteHost) ContainerIDByName(ctx context.Context, name string) (string, error) {
	var id string
	err := h.Client.get(ctx, "/id_by_name", url.Values{"name": {name}}, &id)
	return id, err
}

// Create creates (but does not start) a container on the peer.
func (h *RemoteHost) Create(ctx context.Context, spec host.RunSpec) (*host.ContainerInfo, error) {
	var resp createResponse
	if err := h.Client.get(ctx, "/create", specParams(spec), &resp); err != nil {
		return nil, fmt.Errorf("remote: create %s: %w", spec.ImageRef(), err)
	}
	return &host.ContainerInfo{
		ContainerName: resp.ContainerName,
		ID:            resp.ID,
		Image:         resp.Image,
		Ports:         resp.Ports,
		Network:       resp.Network,
		Hostname:      resp.Hostname,
	}, nil
}

// Run starts a container on the peer and returns a Runner whose
// stdout/stderr are replicated by offset polling. The peer assigns the
// instance ID; the one allocated locally is discarded.
func (h *RemoteHost) Run(ctx context.Context, _ types.InstanceID, spec host.RunSpec, opts host.Options) (*proc.Runner, error) {
	params := merge(
		specParams(spec),
		url.Values{
			"imageArgs":      {jsonArray(spec.Args)},
			"cleanContainer": {fmt.Sprintf("%t", spec.CleanOrDefault(true))},
		},
		outputParams(true, opts.OutputLimit),
	)
	var resp runResponse
	if err := h.Client.get(ctx, "/run", params, &resp); err != nil {
		return nil, fmt.Errorf("remote: run %s: %w", spec.ImageRef(), err)
	}

	instance := types.InstanceID(resp.InstanceID)
	readyType, capacity := opts.Resolve()
	process := proc.NewProcess(instance, resp.ContainerName, readyType, opts.StdoutReady, opts.StderrReady, capacity)
	h.mirror(ctx, process)

	var netPtr, hostname *string
	if spec.Network != "" {
		netPtr = &spec.Network
	}
	if spec.Hostname != "" {
		hostname = &spec.Hostname
	}
	runner := proc.NewRunner(process, spec.ImageRef(), spec.Ports, netPtr, hostname, h.StopByName)
	if resp.ID != "" {
		runner.SetID(resp.ID)
	}
	return runner, nil
}

// Exec runs cmd inside an already-running container on the peer.
func (h *RemoteHost) Exec(ctx context.Context, _ types.InstanceID, containerName, cmd string, args []string, opts host.Options) (*proc.Process, error) {
	params := merge(
		url.Values{"cmd": {cmd}, "args": {jsonArray(args)}, "name": {containerName}},
		outputParams(true, opts.OutputLimit),
	)
	var resp execResponse
	if err := h.Client.get(ctx, "/exec", params, &resp); err != nil {
		return nil, fmt.Errorf("remote: exec in %s: %w", containerName, err)
	}

	readyType, capacity := opts.Resolve()
	process := proc.NewProcess(types.InstanceID(resp.InstanceID), resp.ContainerName, readyType, opts.StdoutReady, opts.StderrReady, capacity)
	h.mirror(ctx, process)
	return process, nil
}

// Command runs a bare daemon-level command on the peer.
func (h *RemoteHost) Command(ctx context.Context, _ types.InstanceID, cmd string, args []string, opts host.Options) (*proc.Process, error) {
	params := merge(
		url.Values{"cmd": {cmd}, "args": {jsonArray(args)}},
		outputParams(true, opts.OutputLimit),
	)
	var resp commandResponse
	if err := h.Client.get(ctx, "/command", params, &resp); err != nil {
		return nil, fmt.Errorf("remote: command %s: %w", cmd, err)
	}

	readyType, capacity := opts.Resolve()
	process := proc.NewProcess(types.InstanceID(resp.InstanceID), "", readyType, opts.StdoutReady, opts.StderrReady, capacity)
	h.mirror(ctx, process)
	return process, nil
}

// RawCommand is Command in byte mode: outputAsLines travels false and
// the mirror retains raw bytes.
func (h *RemoteHost) RawCommand(ctx context.Context, _ types.InstanceID, cmd string, args []string, limit int) (*proc.RawProcess, error) {
	if limit <= 0 {
		limit = stream.DefaultByteCapacity
	}
	params := merge(
		url.Values{"cmd": {cmd}, "args": {jsonArray(args)}},
		outputParams(false, limit),
	)
	var resp commandResponse
	if err := h.Client.get(ctx, "/command", params, &resp); err != nil {
		return nil, fmt.Errorf("remote: command %s: %w", cmd, err)
	}

	process := proc.NewRawProcess(types.InstanceID(resp.InstanceID), "", types.ReadyStartsReady, nil, nil, limit)
	process.Initialize(func() bool {
		bg := context.WithoutCancel(ctx)
		exited := func() bool { return !process.IsRunning() }
		go h.Client.pullRaw(bg, "stdout", process.InstanceID(), process.Stdout, exited)
		go h.Client.pullRaw(bg, "stderr", process.InstanceID(), process.Stderr, exited)
		go h.Client.watchExit(bg, process.InstanceID(), process.SetExitCode)
		return true
	})
	return process, nil
}

// mirror wires a line-mode process to its server-side twin: one puller
// per stream plus the blocking exit watcher. The goroutines outlive
// the caller's ctx deadline; they stop with the remote process.
func (h *RemoteHost) mirror(ctx context.Context, process *proc.Process) {
	process.Initialize(func() bool {
		bg := context.WithoutCancel(ctx)
		exited := func() bool { return !process.IsRunning() }
		go h.Client.pullStream(bg, "stdout", process.InstanceID(), process.Stdout, exited)
		go h.Client.pullStream(bg, "stderr", process.InstanceID(), process.Stderr, exited)
		go h.Client.watchExit(bg, process.InstanceID(), process.SetExitCode)
		return true
	})
}

// StopByName asks the peer to stop a container with the given grace
// timeout.
func (h *RemoteHost) StopByName(ctx context.Context, containerName string, timeout time.Duration) error {
	seconds := int(timeout.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	params := url.Values{
		"name":    {containerName},
		"timeout": {fmt.Sprintf("%d", seconds)},
	}
	var ok bool
	if err := h.Client.get(ctx, "/stop", params, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("remote: peer failed to stop %s", containerName)
	}
	return nil
}

// WaitReadyRemote blocks on the peer's own readiness latch for
// instance. The mirror's local WaitReady is usually what callers want;
// this exists for observing a process some other client started.
func (h *RemoteHost) WaitReadyRemote(ctx context.Context, instance types.InstanceID) (bool, error) {
	var ok bool
	err := h.Client.getLongPoll(ctx, "/wait_ready", instanceParams(instance), &ok)
	return ok, err
}
