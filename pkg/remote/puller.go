package remote

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/cuemby/dockhand/pkg/log"
	"github.com/cuemby/dockhand/pkg/metrics"
	"github.com/cuemby/dockhand/pkg/stream"
	"github.com/cuemby/dockhand/pkg/types"
)

// maxConsecutivePollFailures bounds how many times in a row a poll may
// fail (network error, non-2xx) before the puller gives up; a process
// we can no longer reach is indistinguishable from one that exited.
const maxConsecutivePollFailures = 3

// pullStream replicates one stdio channel of a remote process by
// repeatedly GETting /stdout or /stderr with the logical index of the
// next entry the local mirror expects (removed + held), appending the
// page's entries to dst. Entries the peer evicted before the mirror
// ever saw them are accounted by advancing the mirror's removed count,
// so both sides agree on logical positions. The puller returns when
// the peer reports the process gone, the process is already known to
// have exited locally, polling has failed maxConsecutivePollFailures
// times running, or ctx is done.
func (c *Client) pullStream(ctx context.Context, channel string, instance types.InstanceID, dst *stream.OutputStream[string], exited func() bool) {
	empties := 0
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if exited() {
			return
		}

		var page streamPage
		params := merge(instanceParams(instance), url.Values{
			"realOffset": {strconv.FormatInt(dst.LogicalLength(), 10)},
		})
		if err := c.get(ctx, "/"+channel, params, &page); err != nil {
			failures++
			if failures >= maxConsecutivePollFailures {
				logger := log.WithInstanceID(int64(instance))
				logger.Warn().Err(err).Str("channel", channel).Msg("output puller giving up")
				return
			}
			sleepOrDone(ctx, nextBackoff(empties))
			continue
		}
		failures = 0

		if gap := page.Removed - dst.LogicalLength(); gap > 0 {
			dst.Advance(gap)
		}
		for _, e := range page.Entries {
			dst.Append(e)
		}

		if !page.Running {
			return
		}

		delay := nextBackoff(empties)
		if len(page.Entries) > 0 {
			empties = 0
			delay = nextBackoff(0)
		} else {
			empties++
		}
		metrics.RemotePollBackoff.Observe(delay.Seconds())
		sleepOrDone(ctx, delay)
	}
}

// pullRaw is pullStream for byte-mode mirrors: each page entry is a
// raw chunk whose bytes are appended individually.
func (c *Client) pullRaw(ctx context.Context, channel string, instance types.InstanceID, dst *stream.OutputStream[byte], exited func() bool) {
	empties := 0
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if exited() {
			return
		}

		var page streamPage
		params := merge(instanceParams(instance), url.Values{
			"realOffset": {strconv.FormatInt(dst.LogicalLength(), 10)},
		})
		if err := c.get(ctx, "/"+channel, params, &page); err != nil {
			failures++
			if failures >= maxConsecutivePollFailures {
				return
			}
			sleepOrDone(ctx, nextBackoff(empties))
			continue
		}
		failures = 0

		if gap := page.Removed - dst.LogicalLength(); gap > 0 {
			dst.Advance(gap)
		}
		for _, chunk := range page.Entries {
			for _, b := range []byte(chunk) {
				dst.Append(b)
			}
		}

		if !page.Running {
			return
		}

		delay := nextBackoff(empties)
		if len(page.Entries) > 0 {
			empties = 0
			delay = nextBackoff(0)
		} else {
			empties++
		}
		sleepOrDone(ctx, delay)
	}
}

// watchExit long-polls /wait_exit until the peer reports the process's
// exit code, then latches it locally. Latching also forces both mirror
// streams' ready latches, which is what finally unblocks WaitReady for
// a process that exited without ever matching its marker.
func (c *Client) watchExit(ctx context.Context, instance types.InstanceID, setExit func(int)) {
	failures := 0
	for {
		var code int
		err := c.getLongPoll(ctx, "/wait_exit", instanceParams(instance), &code)
		if err == nil {
			setExit(code)
			return
		}
		if ctx.Err() != nil {
			return
		}
		failures++
		if failures >= maxConsecutivePollFailures {
			logger := log.WithInstanceID(int64(instance))
			logger.Warn().Err(err).Msg("exit watcher giving up")
			return
		}
		sleepOrDone(ctx, time.Second)
	}
}
