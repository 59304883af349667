// Package network tracks which hostname resolves to which container IP
// within each docker network dockhand has touched, and turns that into
// `--add-host` arguments for docker run. Its member lists are also what
// pkg/runtime uses to patch a running container's /etc/hosts after the
// fact; the hosts lines themselves are rendered there.
// dockhand never forwards host ports itself, it only teaches containers
// each other's names.
package network
