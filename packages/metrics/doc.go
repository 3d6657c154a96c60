// Package metrics aggregates request latencies for a run into percentile
// summaries backed by an HDR histogram.
package metrics
