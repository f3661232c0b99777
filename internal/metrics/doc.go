// Package metrics exposes Prometheus counters for poll cycles and ingested
// batches. A Metrics value is fed by the scheduler after every cycle and
// served by the daemon's HTTP listener.
package metrics
