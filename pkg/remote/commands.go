package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cuemby/dockhand/pkg/commands"
	"github.com/cuemby/dockhand/pkg/host"
)

// RemoteCommands implements commands.Commands by driving the peer's
// own command surface: an inspect runs as a remote /command, a hosts
// patch as a remote /exec, both supervised like any other mirrored
// process.
type RemoteCommands struct {
	host *RemoteHost
}

var _ commands.Commands = (*RemoteCommands)(nil)

// GetContainerIP runs `docker inspect` on the peer and reads the
// address off the mirrored stdout.
func (c *RemoteCommands) GetContainerIP(ctx context.Context, container, network string) (string, error) {
	format := fmt.Sprintf("{{.NetworkSettings.Networks.%s.IPAddress}}", network)
	process, err := c.host.Command(ctx, 0, "inspect", []string{"-f", format, container}, host.Options{})
	if err != nil {
		return "", fmt.Errorf("remote: inspect %s: %w", container, err)
	}

	zero := 0
	code, err := process.WaitExit(ctx, &zero)
	if err != nil {
		return "", err
	}
	if code == nil {
		return "", fmt.Errorf("remote: inspect %s failed on peer", container)
	}

	for _, line := range process.Stdout.Snapshot() {
		if ip := strings.TrimSpace(line); ip != "" && ip != "<no value>" {
			return ip, nil
		}
	}
	return "", fmt.Errorf("remote: container %s has no address on network %s", container, network)
}

// AddContainersHostMapping patches each target container's /etc/hosts
// on the peer, one remote exec per target.
func (c *RemoteCommands) AddContainersHostMapping(ctx context.Context, mapping commands.HostMapping) (map[string]bool, error) {
	results := make(map[string]bool, len(mapping))
	for target, hosts := range mapping {
		lines := make([]string, 0, len(hosts))
		names := make([]string, 0, len(hosts))
		for name := range hosts {
			if name != "" && hosts[name] != "" {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%s %s", hosts[name], name))
		}
		if len(lines) == 0 {
			results[target] = true
			continue
		}

		script := fmt.Sprintf("echo '%s' >> /etc/hosts", strings.Join(lines, "\n"))
		process, err := c.host.Exec(ctx, 0, target, "/bin/sh", []string{"-c", script}, host.Options{})
		if err != nil {
			results[target] = false
			continue
		}
		zero := 0
		code, err := process.WaitExit(ctx, &zero)
		results[target] = err == nil && code != nil
	}
	return results, nil
}
