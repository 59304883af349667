package metrics

import "time"

// RunnerSnapshot is a point-in-time view of one runner's running state,
// reported by whatever owns the runner registry (pkg/host).
type RunnerSnapshot struct {
	Running bool
}

// ProcessSnapshot is the process equivalent of RunnerSnapshot.
type ProcessSnapshot struct {
	Running bool
}

// Snapshotter is the minimal surface Collector needs from a Host; it is
// satisfied structurally so pkg/metrics never imports pkg/host.
type Snapshotter interface {
	RunnerSnapshots() []RunnerSnapshot
	ProcessSnapshots() []ProcessSnapshot
	NetworkCount() int
}

// Collector periodically samples a Host's registries into the
// host-wide gauges.
type Collector struct {
	source Snapshotter
	stopCh chan struct{}
}

// NewCollector creates a collector for source; Start begins sampling.
func NewCollector(source Snapshotter) *Collector {
	return &Collector{source: source, stopCh: make(chan struct{})}
}

// Start begins collecting metrics every 15 seconds, in the background.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the collection loop.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	var runnersRunning, runnersExited int
	for _, r := range c.source.RunnerSnapshots() {
		if r.Running {
			runnersRunning++
		} else {
			runnersExited++
		}
	}
	RunnersTotal.WithLabelValues("running").Set(float64(runnersRunning))
	RunnersTotal.WithLabelValues("exited").Set(float64(runnersExited))

	var procsRunning, procsExited int
	for _, p := range c.source.ProcessSnapshots() {
		if p.Running {
			procsRunning++
		} else {
			procsExited++
		}
	}
	ProcessesTotal.WithLabelValues("running").Set(float64(procsRunning))
	ProcessesTotal.WithLabelValues("exited").Set(float64(procsExited))

	NetworksTotal.Set(float64(c.source.NetworkCount()))
}
