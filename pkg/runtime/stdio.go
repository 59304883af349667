package runtime

import (
	"bufio"
	"io"
	"os/exec"
	"sync"

	"github.com/cuemby/dockhand/pkg/metrics"
	"github.com/cuemby/dockhand/pkg/proc"
	"github.com/cuemby/dockhand/pkg/stream"
)

// scanLines reads newline-delimited text from r and appends each line
// to dst until r is exhausted, keeping the per-channel throughput
// counters current.
func scanLines(r io.Reader, dst *stream.OutputStream[string], channel string) {
	appended := metrics.StreamEntriesAppendedTotal.WithLabelValues(channel)
	evicted := metrics.StreamEntriesEvictedTotal.WithLabelValues(channel)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	prevRemoved := dst.Removed()
	for scanner.Scan() {
		dst.Append(scanner.Text())
		appended.Inc()
		if removed := dst.Removed(); removed > prevRemoved {
			evicted.Add(float64(removed - prevRemoved))
			prevRemoved = removed
		}
	}
}

// copyBytes is the byte-mode counterpart of scanLines: raw bytes are
// appended one by one, undecoded.
func copyBytes(r io.Reader, dst *stream.OutputStream[byte], channel string) {
	appended := metrics.StreamEntriesAppendedTotal.WithLabelValues(channel)

	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			dst.Append(b)
		}
		appended.Add(float64(n))
		if err != nil {
			return
		}
	}
}

// exitCodeOf extracts a process's exit code from the error cmd.Wait()
// returned, following the standard os/exec convention: nil means 0,
// an *exec.ExitError carries the real code, anything else (the command
// could not even be started/signaled) is reported as -1.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// supervise wires cmd's stdio into p's streams and its exit code into
// p's core, via p.Initialize so the wiring only ever runs once. It
// returns once the child has started (or failed to).
func supervise(cmd *exec.Cmd, p *proc.Process) error {
	var startErr error
	p.Initialize(func() bool {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			startErr = err
			return false
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			startErr = err
			return false
		}
		if err := cmd.Start(); err != nil {
			startErr = err
			return false
		}

		// cmd.Wait closes the pipes, so it must not run until both
		// drains have seen EOF.
		var drained sync.WaitGroup
		drained.Add(2)
		go func() {
			defer drained.Done()
			scanLines(stdout, p.Stdout, "stdout")
		}()
		go func() {
			defer drained.Done()
			scanLines(stderr, p.Stderr, "stderr")
		}()
		go func() {
			drained.Wait()
			waitErr := cmd.Wait()
			p.SetExitCode(exitCodeOf(waitErr))
		}()
		return true
	})
	return startErr
}

// superviseRaw is supervise for byte-mode processes.
func superviseRaw(cmd *exec.Cmd, p *proc.RawProcess) error {
	var startErr error
	p.Initialize(func() bool {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			startErr = err
			return false
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			startErr = err
			return false
		}
		if err := cmd.Start(); err != nil {
			startErr = err
			return false
		}

		var drained sync.WaitGroup
		drained.Add(2)
		go func() {
			defer drained.Done()
			copyBytes(stdout, p.Stdout, "stdout")
		}()
		go func() {
			defer drained.Done()
			copyBytes(stderr, p.Stderr, "stderr")
		}()
		go func() {
			drained.Wait()
			waitErr := cmd.Wait()
			p.SetExitCode(exitCodeOf(waitErr))
		}()
		return true
	})
	return startErr
}
