package ready

import (
	"regexp"
	"testing"

	"github.com/cuemby/dockhand/pkg/stream"
	"github.com/stretchr/testify/require"
)

func TestContainsMarker(t *testing.T) {
	s := stream.New(10, ContainsMarker("ready to accept connections"), nil)
	s.Append("starting up")
	require.False(t, s.IsReady())
	s.Append("database system is ready to accept connections")
	require.True(t, s.IsReady())
}

func TestMatchesRegexp(t *testing.T) {
	re := regexp.MustCompile(`^Listening on :\d+$`)
	s := stream.New(10, MatchesRegexp(re), nil)
	s.Append("booting")
	require.False(t, s.IsReady())
	s.Append("Listening on :8080")
	require.True(t, s.IsReady())
}

func TestLineCount(t *testing.T) {
	s := stream.New(2, LineCount(3), nil)
	s.Append("one")
	s.Append("two")
	require.False(t, s.IsReady())
	s.Append("three")
	require.True(t, s.IsReady())
}

func TestByteThreshold(t *testing.T) {
	s := stream.New(4, ByteThreshold(5), nil)
	for _, b := range []byte("abcd") {
		s.Append(b)
	}
	require.False(t, s.IsReady())
	s.Append('e')
	require.True(t, s.IsReady())
}
