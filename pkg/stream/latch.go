package stream

import "sync"

// Latch is a one-shot broadcast primitive: once tripped it stays tripped,
// and every past or future waiter observes the same closed channel. It
// backs both a stream's own readiness latch and the any-ready latch
// shared between sibling stdout/stderr streams.
type Latch struct {
	mu      sync.Mutex
	once    sync.Once
	ch      chan struct{}
	tripped bool
}

// NewLatch returns an untripped Latch.
func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Trip latches readiness. Idempotent: subsequent calls are no-ops.
func (l *Latch) Trip() {
	l.once.Do(func() {
		l.mu.Lock()
		l.tripped = true
		l.mu.Unlock()
		close(l.ch)
	})
}

// Tripped reports whether Trip has ever been called.
func (l *Latch) Tripped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tripped
}

// C returns the channel that closes the moment the latch trips. Safe to
// read from multiple goroutines; a closed channel read never blocks.
func (l *Latch) C() <-chan struct{} {
	return l.ch
}
