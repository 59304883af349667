// Package log wraps zerolog with dockhand's conventions: a single
// global Logger configured once at startup via Init, and child-logger
// constructors (WithComponent, WithSessionID, WithInstanceID) that
// attach the fields every other package logs by.
package log
