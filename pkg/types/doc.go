// Package types defines the core data model shared by every dockhand
// package: instance identity, the process-readiness vocabulary, and
// port-mapping normalization. Nothing in here talks to a docker binary
// or an HTTP peer; those live in pkg/runtime and pkg/remote.
package types
