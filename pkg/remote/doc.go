// Package remote is the remote Host backend: an HTTP+JSON
// client for a peer dockhand control-plane process. It authenticates
// via GET /auth on first use and again after a 401, caching the bearer
// token in the X-Access-Token header, and replicates a process's stdout/stderr by polling an
// offset-based log endpoint with linearly growing back-off, exactly
// mirroring the Local Host backend's proc.Process/proc.Runner contract
// so callers never know which backend they are talking to.
package remote
