package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Host-wide gauges.
	RunnersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dockhand_runners_total",
			Help: "Total number of runners by running state",
		},
		[]string{"state"},
	)

	ProcessesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dockhand_processes_total",
			Help: "Total number of non-container processes by running state",
		},
		[]string{"state"},
	)

	NetworksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dockhand_networks_total",
			Help: "Total number of docker networks with registered members",
		},
	)

	// Operation latency histograms, mirroring the docker CLI
	// invocations the local backend shells out to.
	ContainerCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dockhand_container_create_duration_seconds",
			Help:    "Time taken for a backend Run call to return a started container",
			Buckets: prometheus.DefBuckets,
		},
	)

	ContainerStopDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dockhand_container_stop_duration_seconds",
			Help:    "Time taken for `docker stop` to return",
			Buckets: prometheus.DefBuckets,
		},
	)

	CommandExecDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dockhand_command_exec_duration_seconds",
			Help:    "Time taken for a plain command or `docker exec` to start",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Output-stream throughput.
	StreamEntriesAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhand_stream_entries_appended_total",
			Help: "Total number of entries appended to output streams",
		},
		[]string{"channel"},
	)

	StreamEntriesEvictedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhand_stream_entries_evicted_total",
			Help: "Total number of entries evicted from output streams on overflow",
		},
		[]string{"channel"},
	)

	// Remote backend polling.
	RemotePollRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhand_remote_poll_requests_total",
			Help: "Total number of RPC requests issued to a remote peer, by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	RemotePollBackoff = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dockhand_remote_poll_backoff_seconds",
			Help:    "Delay applied before the next line-mode offset poll",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)
)

func init() {
	prometheus.MustRegister(RunnersTotal)
	prometheus.MustRegister(ProcessesTotal)
	prometheus.MustRegister(NetworksTotal)
	prometheus.MustRegister(ContainerCreateDuration)
	prometheus.MustRegister(ContainerStopDuration)
	prometheus.MustRegister(CommandExecDuration)
	prometheus.MustRegister(StreamEntriesAppendedTotal)
	prometheus.MustRegister(StreamEntriesEvictedTotal)
	prometheus.MustRegister(RemotePollRequestsTotal)
	prometheus.MustRegister(RemotePollBackoff)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
