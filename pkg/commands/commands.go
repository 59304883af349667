package commands

import "context"

// HostMapping assigns, per target container name, the hostname→IP
// entries to append to that container's /etc/hosts.
type HostMapping map[string]map[string]string

// Commands is the set of one-off helper operations a Host backend
// exposes outside the Process/Runner lifecycle. The local backend
// shells out to docker; the remote backend forwards to its peer.
type Commands interface {
	// GetContainerIP resolves the address container has on the given
	// docker network, by inspect.
	GetContainerIP(ctx context.Context, container, network string) (string, error)

	// AddContainersHostMapping applies mapping to each target
	// container, reporting per container whether the patch succeeded.
	// Targets that cannot be patched (stopped, missing) report false;
	// the error return is reserved for failures that invalidate the
	// whole batch.
	AddContainersHostMapping(ctx context.Context, mapping HostMapping) (map[string]bool, error)
}
