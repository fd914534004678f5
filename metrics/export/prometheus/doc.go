// Package prometheus exposes goAuthClient metrics as a Prometheus collector.
//
// [NewPrometheusExporter] wraps an [goAuthClient.Engine]; register the result
// with a [github.com/prometheus/client_golang/prometheus.Registerer] or mount
// [PrometheusExporter.Handler]. Counter names are goauthclient_*_total; the
// single histogram is goauthclient_call_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry on its own.
//   - Mutate engine state.
package prometheus
