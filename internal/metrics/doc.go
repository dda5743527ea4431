// Package metrics exports the outcome of a token expiry check as Prometheus
// gauges written to a node-exporter textfile.
package metrics
