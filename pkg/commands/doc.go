// Package commands defines the contract for the one-off helper
// operations a Host backend exposes outside the Process/Runner
// lifecycle: resolving a running container's IP address,
// and patching another container's host mappings once a later
// container joins the same network. pkg/runtime and pkg/remote each
// provide a concrete implementation; this package holds no logic of
// its own.
package commands
