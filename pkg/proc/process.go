package proc

import (
	"github.com/cuemby/dockhand/pkg/stream"
	"github.com/cuemby/dockhand/pkg/types"
)

var (
	_ Handle = (*Process)(nil)
	_ Handle = (*RawProcess)(nil)
	_ Handle = (*Runner)(nil)
)

// Process is a line-mode supervised command execution: readiness
// markers are matched against decoded text, so Process fixes
// OutputStream's element type to string. Raw byte capture (e.g. a
// plain command whose output is never meant to be scanned for a
// marker) uses RawProcess instead; both share the same core state
// machine.
type Process struct {
	core
	Stdout *stream.OutputStream[string]
	Stderr *stream.OutputStream[string]
}

// NewProcess wires a Process's streams, sharing an any-ready latch
// between stdout and stderr, and resolves the ready channel from the
// given OutputReadyType.
func NewProcess(instance types.InstanceID, containerName string, readyType types.OutputReadyType, stdoutPredicate, stderrPredicate stream.Predicate[string], capacity int) *Process {
	anyReady := stream.NewLatch()
	stdout := stream.New(capacity, stdoutPredicate, anyReady)
	stderr := stream.New(capacity, stderrPredicate, anyReady)

	var readyChan <-chan struct{}
	switch readyType {
	case types.ReadyStdout:
		readyChan = stdout.Ready()
	case types.ReadyStderr:
		readyChan = stderr.Ready()
	case types.ReadyAny:
		readyChan = anyReady.C()
	default:
		readyChan = closedChan
	}

	return &Process{
		core:   newCore(instance, containerName, readyType, readyChan, stdout.MarkReady, stderr.MarkReady),
		Stdout: stdout,
		Stderr: stderr,
	}
}

// RawProcess is the byte-mode counterpart of Process, used when a
// caller asked for raw output rather than decoded lines.
type RawProcess struct {
	core
	Stdout *stream.OutputStream[byte]
	Stderr *stream.OutputStream[byte]
}

// NewRawProcess is the byte-mode equivalent of NewProcess.
func NewRawProcess(instance types.InstanceID, containerName string, readyType types.OutputReadyType, stdoutPredicate, stderrPredicate stream.Predicate[byte], capacity int) *RawProcess {
	anyReady := stream.NewLatch()
	stdout := stream.New(capacity, stdoutPredicate, anyReady)
	stderr := stream.New(capacity, stderrPredicate, anyReady)

	var readyChan <-chan struct{}
	switch readyType {
	case types.ReadyStdout:
		readyChan = stdout.Ready()
	case types.ReadyStderr:
		readyChan = stderr.Ready()
	case types.ReadyAny:
		readyChan = anyReady.C()
	default:
		readyChan = closedChan
	}

	return &RawProcess{
		core:   newCore(instance, containerName, readyType, readyChan, stdout.MarkReady, stderr.MarkReady),
		Stdout: stdout,
		Stderr: stderr,
	}
}
