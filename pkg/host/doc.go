// Package host is the thin common layer above the local and remote
// backends: a single RunSpec both backends accept, the Backend
// capability interface they both satisfy, and a Manager that allocates
// instance IDs, owns the runner/process registries, and forwards
// lifecycle events to pkg/events and counts to pkg/metrics. Callers
// construct a Manager via the convenience constructors in the module
// root and never touch pkg/runtime or pkg/remote directly again.
package host
