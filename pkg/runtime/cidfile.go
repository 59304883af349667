package runtime

import (
	"context"
	"os"
	"strings"
	"time"
)

// Cidfile polling back-off: start at 10ms, add 10ms after every empty
// read, cap at 1s, give up after 60s total.
const (
	cidfilePollStart = 10 * time.Millisecond
	cidfilePollStep  = 10 * time.Millisecond
	cidfilePollCap   = time.Second
	cidfilePollLimit = 60 * time.Second
)

// pollCidfile waits for docker to write a container ID into path,
// returning it once available. docker creates the file with 0 bytes
// first and writes the ID shortly after, so an empty read is treated
// the same as a missing file.
func pollCidfile(ctx context.Context, path string) (string, error) {
	deadline := time.Now().Add(cidfilePollLimit)
	delay := cidfilePollStart

	for {
		data, err := os.ReadFile(path)
		if err == nil {
			id := strings.TrimSpace(string(data))
			if id != "" {
				return id, nil
			}
		}

		if time.Now().After(deadline) {
			return "", context.DeadlineExceeded
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}

		delay += cidfilePollStep
		if delay > cidfilePollCap {
			delay = cidfilePollCap
		}
	}
}

// prepareCidfilePath clears any stale file from a prior run; docker
// refuses to write a cidfile that already exists.
func prepareCidfilePath(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
