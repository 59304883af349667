package types

import (
	"fmt"
	"strings"

	"github.com/docker/go-connections/nat"
)

// InstanceID is a monotonically increasing, process-wide unique handle
// for a Process or Runner registered on a Host.
type InstanceID int64

// SessionID namespaces ephemeral artifacts (container names, cidfiles)
// created over a single Host's lifetime.
type SessionID string

// OutputReadyType selects which of a Process's output streams (or
// neither) determines when WaitReady resolves.
type OutputReadyType int

const (
	// ReadyStartsReady resolves WaitReady immediately.
	ReadyStartsReady OutputReadyType = iota
	// ReadyStdout waits on the stdout stream's ready latch.
	ReadyStdout
	// ReadyStderr waits on the stderr stream's ready latch.
	ReadyStderr
	// ReadyAny waits on either stream's ready latch.
	ReadyAny
)

func (t OutputReadyType) String() string {
	switch t {
	case ReadyStdout:
		return "stdout"
	case ReadyStderr:
		return "stderr"
	case ReadyAny:
		return "any"
	default:
		return "starts_ready"
	}
}

// ResolveReadyType picks the ready criterion when a caller supplies no
// explicit OutputReadyType: whichever stream has a readiness predicate
// decides readiness, either of them if both do, and a process with no
// predicates at all starts ready.
func ResolveReadyType(explicit *OutputReadyType, hasStdoutPredicate, hasStderrPredicate bool) OutputReadyType {
	if explicit != nil {
		return *explicit
	}
	switch {
	case hasStdoutPredicate && hasStderrPredicate:
		return ReadyAny
	case hasStderrPredicate:
		return ReadyStderr
	case hasStdoutPredicate:
		return ReadyStdout
	default:
		return ReadyStartsReady
	}
}

// ContainerName synthesizes the auto-generated name for a runner that
// was not given one explicitly: dockhand-{session}-{instance}. The
// session component keeps names from colliding across concurrent hosts
// pointed at the same daemon.
func ContainerName(session SessionID, instance InstanceID) string {
	return fmt.Sprintf("dockhand-%s-%d", session, instance)
}

// NormalizePorts canonicalizes "host:container" port mappings: either
// side may be omitted (defaulting to the other side), a bare integer
// "n" becomes "n:n", and duplicates (post-normalization) are discarded
// preserving first occurrence. Normalization is idempotent.
func NormalizePorts(ports []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ports))
	out := make([]string, 0, len(ports))

	for _, raw := range ports {
		norm, err := NormalizePort(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out, nil
}

// NormalizePort normalizes a single port-mapping string.
func NormalizePort(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("types: empty port mapping")
	}

	if !strings.Contains(raw, ":") {
		port, err := nat.ParsePort(raw)
		if err != nil {
			return "", fmt.Errorf("types: invalid port %q: %w", raw, err)
		}
		return fmt.Sprintf("%d:%d", port, port), nil
	}

	parts := strings.SplitN(raw, ":", 2)
	hostPart, containerPart := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	switch {
	case hostPart == "" && containerPart == "":
		return "", fmt.Errorf("types: port mapping %q has no host or container side", raw)
	case hostPart == "":
		hostPart = containerPart
	case containerPart == "":
		containerPart = hostPart
	}

	hostPort, err := nat.ParsePort(hostPart)
	if err != nil {
		return "", fmt.Errorf("types: invalid host port in %q: %w", raw, err)
	}
	containerPort, err := nat.ParsePort(containerPart)
	if err != nil {
		return "", fmt.Errorf("types: invalid container port in %q: %w", raw, err)
	}

	return fmt.Sprintf("%d:%d", hostPort, containerPort), nil
}
