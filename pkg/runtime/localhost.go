package runtime

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	units "github.com/docker/go-units"

	"github.com/cuemby/dockhand/pkg/commands"
	"github.com/cuemby/dockhand/pkg/host"
	"github.com/cuemby/dockhand/pkg/log"
	"github.com/cuemby/dockhand/pkg/network"
	"github.com/cuemby/dockhand/pkg/proc"
	"github.com/cuemby/dockhand/pkg/stream"
	"github.com/cuemby/dockhand/pkg/types"
)

var _ host.Backend = (*LocalHost)(nil)

// LocalHost is the Backend that drives an already-installed docker
// binary on the machine dockhand itself runs on.
type LocalHost struct {
	DockerPath string
	Registry   *network.Registry
	CidfileDir string
}

// Discover locates the docker binary (dockerPath when given, PATH
// lookup otherwise) and confirms the daemon answers, failing fast
// rather than letting the first Run silently hang against an
// unreachable daemon.
func Discover(ctx context.Context, dockerPath string, registry *network.Registry) (*LocalHost, error) {
	path := dockerPath
	if path == "" {
		var err error
		path, err = exec.LookPath("docker")
		if err != nil {
			return nil, fmt.Errorf("runtime: docker binary not found on PATH: %w", err)
		}
	}

	cidfileDir, err := os.MkdirTemp("", "dockhand-cid-")
	if err != nil {
		return nil, fmt.Errorf("runtime: create cidfile directory: %w", err)
	}

	if registry == nil {
		registry = network.NewRegistry()
	}

	h := &LocalHost{DockerPath: path, Registry: registry, CidfileDir: cidfileDir}
	if !h.CheckDaemon(ctx) {
		_ = os.RemoveAll(cidfileDir)
		return nil, fmt.Errorf("runtime: docker daemon unreachable")
	}
	return h, nil
}

// CheckDaemon reports whether the docker daemon answers, by running
// `docker ps`: a daemon that cannot list containers cannot run them
// either.
func (h *LocalHost) CheckDaemon(ctx context.Context) bool {
	return exec.CommandContext(ctx, h.DockerPath, "ps").Run() == nil
}

// Close removes the temporary directory used for cidfiles. Running
// containers are left alone.
func (h *LocalHost) Close() error {
	return os.RemoveAll(h.CidfileDir)
}

// Commands exposes the docker-CLI-backed helper operations.
func (h *LocalHost) Commands() commands.Commands {
	return &LocalCommands{host: h}
}

func (h *LocalHost) cidfilePath(instance types.InstanceID) string {
	return filepath.Join(h.CidfileDir, fmt.Sprintf("%d.cid", instance))
}

// Create creates a container without starting it and reports its
// identity once docker has written the cidfile.
func (h *LocalHost) Create(ctx context.Context, spec host.RunSpec) (*host.ContainerInfo, error) {
	cidPath := filepath.Join(h.CidfileDir, fmt.Sprintf("create-%s-%d.cid", spec.ContainerName, time.Now().UnixNano()))
	if err := prepareCidfilePath(cidPath); err != nil {
		return nil, fmt.Errorf("runtime: prepare cidfile: %w", err)
	}

	args := buildContainerArgs("create", spec, cidPath, h.Registry)
	cmd := exec.CommandContext(ctx, h.DockerPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("runtime: create %s: %w: %s", spec.ImageRef(), err, stderr.String())
	}

	id, err := pollCidfile(ctx, cidPath)
	if err != nil {
		id, err = h.ContainerIDByName(ctx, spec.ContainerName)
		if err != nil || id == "" {
			return nil, fmt.Errorf("runtime: created %s but no container ID surfaced", spec.ContainerName)
		}
	}

	return &host.ContainerInfo{
		ContainerName: spec.ContainerName,
		ID:            id,
		Image:         spec.ImageRef(),
		Ports:         spec.Ports,
		Network:       spec.Network,
		Hostname:      spec.Hostname,
	}, nil
}

// Run starts a new container and returns a Runner supervising it. The
// Runner's ID and IP are populated asynchronously once the cidfile
// appears; readiness gating happens above, in the Manager.
func (h *LocalHost) Run(ctx context.Context, instance types.InstanceID, spec host.RunSpec, opts host.Options) (*proc.Runner, error) {
	cidPath := h.cidfilePath(instance)
	if err := prepareCidfilePath(cidPath); err != nil {
		return nil, fmt.Errorf("runtime: prepare cidfile: %w", err)
	}

	args := buildContainerArgs("run", spec, cidPath, h.Registry)
	cmd := exec.CommandContext(ctx, h.DockerPath, args...)

	readyType, capacity := opts.Resolve()
	process := proc.NewProcess(instance, spec.ContainerName, readyType, opts.StdoutReady, opts.StderrReady, capacity)

	var netPtr, hostname *string
	if spec.Network != "" {
		netPtr = &spec.Network
	}
	if spec.Hostname != "" {
		hostname = &spec.Hostname
	}
	runner := proc.NewRunner(process, spec.ImageRef(), spec.Ports, netPtr, hostname, h.stopFunc())

	if err := supervise(cmd, process); err != nil {
		return nil, fmt.Errorf("runtime: start %s: %w", spec.ImageRef(), err)
	}

	go h.resolveContainerID(context.WithoutCancel(ctx), cidPath, runner, spec)

	return runner, nil
}

// resolveContainerID recovers the container ID (cidfile first, `docker
// ps -aqf` as fallback), then wires the runner into its network: the
// registry learns the new member so later siblings get --add-host
// flags, and the already-running siblings get their /etc/hosts patched
// so the new container resolves for them too.
func (h *LocalHost) resolveContainerID(ctx context.Context, cidPath string, runner *proc.Runner, spec host.RunSpec) {
	logger := log.WithComponent("runtime")

	id, err := pollCidfile(ctx, cidPath)
	if err != nil {
		id, err = h.ContainerIDByName(ctx, spec.ContainerName)
		if err != nil || id == "" {
			logger.Warn().Str("container", spec.ContainerName).Msg("container ID never surfaced")
			return
		}
	}
	runner.SetID(id)

	if spec.Network == "" || h.Registry == nil {
		return
	}
	ip, err := h.inspectIP(ctx, id, spec.Network)
	if err != nil {
		logger.Warn().Err(err).Str("container", spec.ContainerName).Msg("failed to resolve container IP")
		return
	}
	runner.SetIP(ip)

	peers := h.Registry.Members(spec.Network, spec.ContainerName)
	h.Registry.Register(spec.Network, spec.ContainerName, spec.Hostname, ip)

	if spec.Hostname == "" || len(peers) == 0 {
		return
	}
	mapping := make(commands.HostMapping, len(peers))
	for _, peer := range peers {
		mapping[peer.Name] = map[string]string{spec.Hostname: ip}
	}
	results, err := h.Commands().AddContainersHostMapping(ctx, mapping)
	if err != nil {
		logger.Warn().Err(err).Str("network", spec.Network).Msg("failed to patch peer host mappings")
		return
	}
	for peer, ok := range results {
		if !ok {
			logger.Warn().Str("peer", peer).Str("container", spec.ContainerName).Msg("peer kept a stale hosts file")
		}
	}
}

// Exec runs cmd inside an already-running container. A container that
// is not running cannot host an exec; the name is checked first so the
// caller gets a clear nil-process answer instead of a docker usage
// error buried in stderr.
func (h *LocalHost) Exec(ctx context.Context, instance types.InstanceID, containerName, cmd string, args []string, opts host.Options) (*proc.Process, error) {
	running, err := h.isRunning(ctx, containerName)
	if err != nil {
		return nil, fmt.Errorf("runtime: exec in %s: %w", containerName, err)
	}
	if !running {
		return nil, fmt.Errorf("runtime: container %s is not running", containerName)
	}

	execCmd := exec.CommandContext(ctx, h.DockerPath, buildExecArgs(containerName, cmd, args)...)
	readyType, capacity := opts.Resolve()
	process := proc.NewProcess(instance, containerName, readyType, opts.StdoutReady, opts.StderrReady, capacity)
	if err := supervise(execCmd, process); err != nil {
		return nil, fmt.Errorf("runtime: exec in %s: %w", containerName, err)
	}
	return process, nil
}

// Command runs a bare docker sub-command: the argument vector is
// handed to the docker binary with no verb prefix of our own.
func (h *LocalHost) Command(ctx context.Context, instance types.InstanceID, cmd string, args []string, opts host.Options) (*proc.Process, error) {
	argv := append([]string{cmd}, args...)
	child := exec.CommandContext(ctx, h.DockerPath, argv...)
	readyType, capacity := opts.Resolve()
	process := proc.NewProcess(instance, "", readyType, opts.StdoutReady, opts.StderrReady, capacity)
	if err := supervise(child, process); err != nil {
		return nil, fmt.Errorf("runtime: command %s: %w", cmd, err)
	}
	return process, nil
}

// RawCommand is Command in byte mode.
func (h *LocalHost) RawCommand(ctx context.Context, instance types.InstanceID, cmd string, args []string, limit int) (*proc.RawProcess, error) {
	if limit <= 0 {
		limit = stream.DefaultByteCapacity
	}
	argv := append([]string{cmd}, args...)
	child := exec.CommandContext(ctx, h.DockerPath, argv...)
	process := proc.NewRawProcess(instance, "", types.ReadyStartsReady, nil, nil, limit)
	if err := superviseRaw(child, process); err != nil {
		return nil, fmt.Errorf("runtime: command %s: %w", cmd, err)
	}
	return process, nil
}

// stopSeconds renders a stop grace period in whole seconds with a
// one-second floor, since docker rejects anything lower.
func stopSeconds(timeout time.Duration) int {
	seconds := int(timeout.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// StopByName issues `docker stop --time T name`.
func (h *LocalHost) StopByName(ctx context.Context, containerName string, timeout time.Duration) error {
	cmd := exec.CommandContext(ctx, h.DockerPath, buildStopArgs(containerName, stopSeconds(timeout))...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("runtime: docker stop %s (grace %s): %w: %s", containerName, units.HumanDuration(timeout), err, stderr.String())
	}
	return nil
}

// ContainerIDByName resolves a container's ID from its name via
// `docker ps -aqf`, returning "" when no container matches.
func (h *LocalHost) ContainerIDByName(ctx context.Context, name string) (string, error) {
	cmd := exec.CommandContext(ctx, h.DockerPath, "ps", "-aqf", "name="+name)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("runtime: look up container %s: %w", name, err)
	}
	id, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return id, nil
}

func (h *LocalHost) isRunning(ctx context.Context, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, h.DockerPath, "ps", "-qf", "name="+name)
	out, err := cmd.Output()
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) != "", nil
}

func (h *LocalHost) stopFunc() proc.StopFunc {
	return h.StopByName
}

func (h *LocalHost) inspectIP(ctx context.Context, container, networkName string) (string, error) {
	format := fmt.Sprintf("{{.NetworkSettings.Networks.%s.IPAddress}}", networkName)
	cmd := exec.CommandContext(ctx, h.DockerPath, "inspect", "-f", format, container)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	ip := string(bytes.TrimSpace(out))
	if ip == "" || ip == "<no value>" {
		return "", fmt.Errorf("runtime: container %s has no address on network %s", container, networkName)
	}
	return ip, nil
}
