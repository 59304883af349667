// Package events is a small non-blocking pub/sub broker for process
// and runner lifecycle notifications (started, ready, exited, stopped).
// Subscribers that fall behind drop events rather than blocking the
// publisher; dockhand's CLI uses it to print a live activity feed.
package events
