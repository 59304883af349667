package events

import (
	"sync"
	"time"

	"github.com/cuemby/dockhand/pkg/types"
)

// EventType names a process/runner lifecycle transition.
type EventType string

const (
	EventProcessStarted EventType = "process.started"
	EventProcessReady   EventType = "process.ready"
	EventProcessExited  EventType = "process.exited"
	EventRunnerStarted  EventType = "runner.started"
	EventRunnerStopped  EventType = "runner.stopped"
	EventHostClosed     EventType = "host.closed"
)

// Event is one lifecycle notification. InstanceID is zero for events
// not tied to a single process (runner.stopped addresses a container
// by name, host.closed addresses the whole session).
type Event struct {
	Type          EventType
	Timestamp     time.Time
	SessionID     types.SessionID
	InstanceID    types.InstanceID
	ContainerName string
	// ExitCode is set only on process.exited.
	ExitCode *int
}

// Subscriber receives published events. The channel is buffered; a
// subscriber that stops draining loses events rather than blocking the
// publisher.
type Subscriber <-chan Event

// subscriberBuffer bounds how far a slow subscriber may lag.
const subscriberBuffer = 64

// Broker fans lifecycle events out to any number of subscribers.
// Publishing never blocks: the hosts emitting events are on the hot
// path of container supervision and must not stall behind a consumer.
type Broker struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBroker creates a broker with no subscribers.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its channel along
// with a cancel function that unregisters and closes it. Events
// published before Subscribe are not replayed.
func (b *Broker) Subscribe() (Subscriber, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every current subscriber, stamping the
// timestamp if unset. Subscribers with a full buffer are skipped.
func (b *Broker) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many subscribers are registered.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
