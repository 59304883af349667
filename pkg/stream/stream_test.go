package stream

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEviction(t *testing.T) {
	s := New[string](3, AlwaysReady[string], nil)
	for _, e := range []string{"a", "b", "c", "d", "e"} {
		s.Append(e)
	}

	require.Equal(t, []string{"c", "d", "e"}, s.Snapshot())
	require.EqualValues(t, 2, s.Removed())
	require.EqualValues(t, 5, s.LogicalLength())
	require.LessOrEqual(t, s.Len(), s.Capacity())
}

func TestLogicalLengthMonotonic(t *testing.T) {
	s := New[string](2, AlwaysReady[string], nil)
	var last int64
	for i := 0; i < 10; i++ {
		s.Append("x")
		ll := s.LogicalLength()
		require.GreaterOrEqual(t, ll, last)
		require.LessOrEqual(t, int64(s.Len()), int64(s.Capacity()))
		require.Equal(t, s.Removed()+int64(s.Len()), ll)
		last = ll
	}
}

func TestReadyPredicateLatchesOnce(t *testing.T) {
	marker := "database system is ready to accept connections"
	predicate := func(_ *OutputStream[string], line string) bool {
		return strings.Contains(line, marker)
	}
	s := New[string](10, predicate, nil)

	require.False(t, s.IsReady())
	s.Append("starting up")
	require.False(t, s.IsReady())

	s.Append(marker)
	require.True(t, s.IsReady())

	// further appends never un-latch readiness.
	s.Append("shutting down")
	require.True(t, s.IsReady())
}

func TestWaitReadyResolvesOnPredicate(t *testing.T) {
	s := New[string](10, AlwaysReady[string], nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.WaitReady(ctx) }()

	s.Append("anything")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitReady did not resolve")
	}
}

func TestWaitReadyTimesOut(t *testing.T) {
	predicate := func(_ *OutputStream[string], _ string) bool { return false }
	s := New[string](10, predicate, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.WaitReady(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnyReadySharedBetweenSiblings(t *testing.T) {
	shared := NewLatch()
	stdout := New[string](10, AlwaysReady[string], shared)
	stderr := New[string](10, func(_ *OutputStream[string], _ string) bool { return false }, shared)

	require.False(t, stderr.IsReady())
	stdout.Append("hi")

	select {
	case <-stderr.AnyReady():
	default:
		t.Fatal("expected any-ready latch to be tripped by sibling stream")
	}
	require.True(t, stdout.IsReady())
	require.False(t, stderr.IsReady())
}

func TestMarkReadyIsIdempotent(t *testing.T) {
	s := New[string](10, func(_ *OutputStream[string], _ string) bool { return false }, nil)
	s.MarkReady()
	s.MarkReady()
	require.True(t, s.IsReady())
}

func TestAdvanceAdoptsRemoteEviction(t *testing.T) {
	s := New[string](10, AlwaysReady[string], nil)
	s.Advance(10)
	for _, e := range []string{"E10", "E11", "E12", "E13", "E14"} {
		s.Append(e)
	}

	require.EqualValues(t, 10, s.Removed())
	require.Equal(t, []string{"E10", "E11", "E12", "E13", "E14"}, s.Snapshot())
	require.EqualValues(t, 15, s.LogicalLength())

	// negative or zero advances change nothing.
	s.Advance(0)
	s.Advance(-3)
	require.EqualValues(t, 15, s.LogicalLength())
}

func TestByteModeStream(t *testing.T) {
	s := New[byte](4, AlwaysReady[byte], nil)
	for _, b := range []byte("hello") {
		s.Append(b)
	}
	require.Equal(t, []byte("ello"), s.Snapshot())
	require.EqualValues(t, 1, s.Removed())
}
