// Package dockhand supervises docker containers and the processes
// inside them, against either the local docker binary or a remote
// dockhand peer. The two constructors here are the intended entry
// points; everything they return is a *host.Manager, so code written
// against one backend runs unchanged against the other.
package dockhand

import (
	"context"

	"github.com/cuemby/dockhand/pkg/host"
	"github.com/cuemby/dockhand/pkg/network"
	"github.com/cuemby/dockhand/pkg/remote"
	"github.com/cuemby/dockhand/pkg/runtime"
)

// NewLocalManager builds a Manager over the local docker binary.
// dockerPath may be empty to discover the binary on PATH.
func NewLocalManager(ctx context.Context, dockerPath string, opts ...host.Option) (*host.Manager, error) {
	registry := network.NewRegistry()
	backend, err := runtime.Discover(ctx, dockerPath, registry)
	if err != nil {
		return nil, err
	}
	opts = append(opts, host.WithNetworkCounter(registry.Count))
	return host.NewManager(backend, opts...), nil
}

// NewRemoteManager builds a Manager over a dockhand peer at baseURL,
// authenticating with creds (a bearer token or a username/password
// pair).
func NewRemoteManager(ctx context.Context, baseURL string, creds remote.Credentials, opts ...host.Option) (*host.Manager, error) {
	backend, err := remote.NewRemoteHost(ctx, baseURL, creds)
	if err != nil {
		return nil, err
	}
	return host.NewManager(backend, opts...), nil
}
