// Package metrics exposes Prometheus metrics for registrations and document
// store calls on a dedicated registry, served by MetricsServer on /metrics.
package metrics
