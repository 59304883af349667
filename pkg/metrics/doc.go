// Package metrics exposes dockhand's operational state as Prometheus
// gauges/histograms (runner and process counts, docker CLI invocation
// latency, stream throughput, remote poll outcomes), a component-based
// health/readiness checker with HTTP handlers for /health, /ready and
// /live, and a Timer helper for histogram observations. Collector
// samples a Host's registries into the gauges on a fixed interval.
package metrics
