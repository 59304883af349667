// Package ready collects reusable stream.Predicate implementations for
// the common ways a process signals it is ready: a literal substring, a
// regular expression, or a minimum number of bytes/lines observed.
// Callers compose these with stream.New directly;
// nothing here depends on proc, runtime, or remote.
package ready
