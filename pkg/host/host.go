package host

import (
	"context"
	"time"

	"github.com/cuemby/dockhand/pkg/commands"
	"github.com/cuemby/dockhand/pkg/proc"
	"github.com/cuemby/dockhand/pkg/stream"
	"github.com/cuemby/dockhand/pkg/types"
)

// RunSpec describes a container to start or create, independent of
// which backend ultimately runs it. The local backend turns it into
// docker CLI arguments; the remote backend turns it into query
// parameters.
type RunSpec struct {
	// ContainerName is the caller-chosen name; when empty the Manager
	// auto-generates one namespaced by its session ID.
	ContainerName string
	Image         string
	// Version is the image tag; empty means the bare image reference is
	// used as given.
	Version  string
	Ports    []string
	Network  string
	Hostname string
	// Volumes are "hostPath:containerPath" pairs; entries with an empty
	// side are skipped.
	Volumes []string
	// Env are "KEY=value" pairs; entries with an empty key are skipped.
	Env []string
	// CleanContainer controls --rm. nil means "backend default": true
	// for Run, false for Create. The asymmetry is historical and
	// documented on Manager.Create.
	CleanContainer *bool
	// Args are trailing image arguments, only meaningful for Run.
	Args []string
}

// ImageRef renders the image reference passed to docker: "name" or
// "name:version".
func (s RunSpec) ImageRef() string {
	if s.Version == "" {
		return s.Image
	}
	return s.Image + ":" + s.Version
}

// CleanOrDefault resolves the tri-state CleanContainer flag.
func (s RunSpec) CleanOrDefault(def bool) bool {
	if s.CleanContainer == nil {
		return def
	}
	return *s.CleanContainer
}

// Options selects how a started process's output is retained and when
// the process counts as ready. The zero value means: line mode,
// default capacity, ready criterion resolved from which predicates are
// set (none set means the process starts ready).
type Options struct {
	// ReadyType overrides the criterion resolution; nil lets the
	// predicates decide.
	ReadyType *types.OutputReadyType
	// StdoutReady/StderrReady latch readiness the first time they
	// return true for an appended line.
	StdoutReady stream.Predicate[string]
	StderrReady stream.Predicate[string]
	// OutputLimit caps retained entries per stream; <= 0 means the
	// stream default for the mode.
	OutputLimit int
}

// Resolve returns the effective ready criterion and line capacity.
func (o Options) Resolve() (types.OutputReadyType, int) {
	rt := types.ResolveReadyType(o.ReadyType, o.StdoutReady != nil, o.StderrReady != nil)
	limit := o.OutputLimit
	if limit <= 0 {
		limit = stream.DefaultLineCapacity
	}
	return rt, limit
}

// ContainerInfo is what Create reports about a container that exists
// but has not been started: there is no process to supervise yet, so
// no Runner is minted.
type ContainerInfo struct {
	ContainerName string
	ID            string
	Image         string
	Ports         []string
	Network       string
	Hostname      string
}

// Backend is the mechanism half of a Host: everything that actually
// talks to a docker daemon, either by shelling out locally
// (pkg/runtime) or over HTTP to a peer (pkg/remote). The two
// implementations share this contract and nothing else. A Manager owns
// exactly one Backend and layers session identity, instance
// registration, and lifecycle events on top.
type Backend interface {
	// CheckDaemon reports whether the daemon answers at all.
	CheckDaemon(ctx context.Context) bool

	// Create creates (but does not start) a container.
	Create(ctx context.Context, spec RunSpec) (*ContainerInfo, error)

	// Run starts a container under the given instance ID and returns a
	// Runner supervising it. Remote backends may substitute the
	// server-assigned instance ID; callers must read it back from the
	// returned Runner.
	Run(ctx context.Context, instance types.InstanceID, spec RunSpec, opts Options) (*proc.Runner, error)

	// Exec runs cmd inside an already-running container. The container
	// must be running; a stopped or unknown name yields a nil Process.
	Exec(ctx context.Context, instance types.InstanceID, containerName, cmd string, args []string, opts Options) (*proc.Process, error)

	// Command runs a bare daemon-level command (locally: an argument
	// vector handed straight to the docker binary).
	Command(ctx context.Context, instance types.InstanceID, cmd string, args []string, opts Options) (*proc.Process, error)

	// RawCommand is Command in byte mode: output is retained as raw
	// bytes rather than decoded lines, and the process starts ready.
	RawCommand(ctx context.Context, instance types.InstanceID, cmd string, args []string, limit int) (*proc.RawProcess, error)

	// StopByName issues the stop protocol against a container by name.
	StopByName(ctx context.Context, name string, timeout time.Duration) error

	// ContainerIDByName resolves a container's opaque ID from its name,
	// returning "" when no such container exists.
	ContainerIDByName(ctx context.Context, name string) (string, error)

	// Commands exposes the one-off helper operations.
	Commands() commands.Commands

	// Close releases backend resources (temp files locally, the server
	// session remotely). It does not stop running containers.
	Close() error
}
