// Package prometheus renders authcore metric snapshots in the Prometheus
// text exposition format without depending on the Prometheus client
// library.
//
// # Architecture boundaries
//
// The exporter reads immutable snapshots via MetricsSnapshot; it never
// touches live counters. Metric names and bucket bounds come from
// metrics/export/internaldefs so the OTel exporter stays in lockstep.
package prometheus
