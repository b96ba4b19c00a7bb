// Package metrics exposes gateway counters and gauges to Prometheus.
//
// A nil *Metrics is valid and records nothing, so components take an
// optional *Metrics without guarding every call site.
package metrics
