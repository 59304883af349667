// Package runtime is the local Host backend: it shells out
// to an already-installed docker binary rather than speaking to the
// daemon's API directly. Every operation shells out to docker,
// supervised the way github.com/cuemby/dockhand/pkg/proc expects: a
// child process whose stdout/stderr are scanned line by line (or copied
// byte by byte, for RawCommand) into OutputStreams, whose container ID is recovered by polling a cidfile,
// and whose stop protocol is `docker stop --time T name`.
package runtime
