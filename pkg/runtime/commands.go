package runtime

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/cuemby/dockhand/pkg/commands"
	"github.com/cuemby/dockhand/pkg/log"
)

// LocalCommands implements commands.Commands against the docker binary.
type LocalCommands struct {
	host *LocalHost
}

var _ commands.Commands = (*LocalCommands)(nil)

// GetContainerIP shells out to `docker inspect` for container's
// address on network.
func (c *LocalCommands) GetContainerIP(ctx context.Context, container, network string) (string, error) {
	return c.host.inspectIP(ctx, container, network)
}

// AddContainersHostMapping appends the given hostname→IP entries to
// each target container's /etc/hosts, one `docker exec ... sh -c`
// invocation per target. A target that cannot be patched reports
// false; the rest of the batch still proceeds.
func (c *LocalCommands) AddContainersHostMapping(ctx context.Context, mapping commands.HostMapping) (map[string]bool, error) {
	results := make(map[string]bool, len(mapping))
	for target, hosts := range mapping {
		lines := renderHostsLines(hosts)
		if len(lines) == 0 {
			results[target] = true
			continue
		}
		script := fmt.Sprintf("echo '%s' >> /etc/hosts", strings.Join(lines, "\n"))
		cmd := exec.CommandContext(ctx, c.host.DockerPath, "exec", target, "/bin/sh", "-c", script)
		if out, err := cmd.CombinedOutput(); err != nil {
			logger := log.WithComponent("runtime")
			logger.Warn().Err(err).Str("target", target).Str("output", string(out)).Msg("hosts patch failed")
			results[target] = false
			continue
		}
		results[target] = true
	}
	return results, nil
}

// renderHostsLines renders "<ip> <hostname>" lines in hostname order
// so repeated patches are deterministic.
func renderHostsLines(hosts map[string]string) []string {
	names := make([]string, 0, len(hosts))
	for name, ip := range hosts {
		if name == "" || ip == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s %s", hosts[name], name))
	}
	return lines
}
