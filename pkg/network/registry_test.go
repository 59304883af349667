package network

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAddHostArgsExcludesSelf(t *testing.T) {
	r := NewRegistry()
	r.Register("app-net", "db", "db", "10.0.0.2")
	r.Register("app-net", "cache", "cache", "10.0.0.3")
	r.Register("app-net", "web", "web", "10.0.0.4")

	args := r.AddHostArgs("app-net", "web")
	require.Equal(t, []string{
		"--add-host", "cache:10.0.0.3",
		"--add-host", "db:10.0.0.2",
	}, args)
}

func TestRegistryUnregisterPrunesEmptyNetwork(t *testing.T) {
	r := NewRegistry()
	r.Register("app-net", "db", "db", "10.0.0.2")
	r.Unregister("app-net", "db")

	require.Empty(t, r.Members("app-net", ""))
	require.Empty(t, r.AddHostArgs("app-net", ""))
}

func TestRegistryReRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register("app-net", "db", "db", "10.0.0.2")
	r.Register("app-net", "db", "db", "10.0.0.9")

	members := r.Members("app-net", "")
	require.Len(t, members, 1)
	require.Equal(t, "10.0.0.9", members[0].IP)
}

func TestRegistryCount(t *testing.T) {
	r := NewRegistry()
	require.Zero(t, r.Count())

	r.Register("app-net", "db", "db", "10.0.0.2")
	r.Register("app-net", "cache", "cache", "10.0.0.3")
	r.Register("other-net", "web", "web", "10.0.1.2")
	require.Equal(t, 2, r.Count())

	r.Unregister("other-net", "web")
	require.Equal(t, 1, r.Count())
}

func TestRegistrySkipsIncompleteEntries(t *testing.T) {
	r := NewRegistry()
	r.Register("app-net", "pending", "pending", "")

	require.Empty(t, r.AddHostArgs("app-net", ""))
	require.Len(t, r.Members("app-net", ""), 1)
}
