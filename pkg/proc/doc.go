// Package proc implements the Process/Runner state machine: exit-code tracking, the wait_ready/wait_exit primitives, and a
// Runner's stop protocol. It is deliberately backend-agnostic — pkg/runtime
// and pkg/remote each wire a proc.Process/proc.Runner to their own stdio
// plumbing (a child's pipes locally, offset polling remotely) by
// supplying a wiring closure to Initialize and a stop closure to Runner.
package proc
