package runtime

import (
	"strconv"
	"strings"

	"github.com/cuemby/dockhand/pkg/host"
	"github.com/cuemby/dockhand/pkg/network"
)

// buildContainerArgs synthesizes the argument vector for `docker
// create` or `docker run`, in a fixed order so identical specs always
// produce identical invocations: verb, --name, published ports,
// network plus its --add-host entries, hostname, volumes, env, --rm,
// --cidfile, image reference, and (run only) trailing image args.
func buildContainerArgs(verb string, spec host.RunSpec, cidPath string, registry *network.Registry) []string {
	args := []string{verb}

	if spec.ContainerName != "" {
		args = append(args, "--name", spec.ContainerName)
	}

	for _, p := range spec.Ports {
		args = append(args, "-p", p)
	}

	if spec.Network != "" {
		args = append(args, "--net", spec.Network)
		if registry != nil {
			args = append(args, registry.AddHostArgs(spec.Network, spec.ContainerName)...)
		}
	}

	if spec.Hostname != "" {
		args = append(args, "-h", spec.Hostname)
	}

	for _, v := range spec.Volumes {
		k, val, ok := strings.Cut(v, ":")
		if !ok || k == "" || val == "" {
			continue
		}
		args = append(args, "-v", k+":"+val)
	}

	for _, e := range spec.Env {
		k, _, _ := strings.Cut(e, "=")
		if k == "" {
			continue
		}
		args = append(args, "-e", e)
	}

	if spec.CleanOrDefault(verb == "run") {
		args = append(args, "--rm")
	}

	if cidPath != "" {
		args = append(args, "--cidfile", cidPath)
	}

	args = append(args, spec.ImageRef())
	if verb == "run" {
		args = append(args, spec.Args...)
	}

	return args
}

// buildExecArgs synthesizes `docker exec` arguments for running a
// command inside an already-running container.
func buildExecArgs(containerName, cmd string, args []string) []string {
	out := make([]string, 0, len(args)+3)
	out = append(out, "exec", containerName, cmd)
	out = append(out, args...)
	return out
}

// buildStopArgs synthesizes `docker stop --time T name`.
func buildStopArgs(containerName string, timeoutSeconds int) []string {
	return []string{"stop", "--time", strconv.Itoa(timeoutSeconds), containerName}
}
