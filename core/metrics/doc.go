// Package metrics defines the contract for recording scheduling runs. Sinks
// like the Prometheus and InfluxDB ones in infra/metrics record a RunEvent per
// run and, optionally, per-stage timings. The factory returns a MultiSink when
// several sinks are configured.
package metrics
