// Package otel publishes goAuthClient metrics through an OpenTelemetry meter.
//
// [NewOTelExporter] registers an Int64ObservableCounter per client counter and
// an Int64ObservableGauge per latency bucket. One callback reads
// [goAuthClient.Engine.MetricsSnapshot] per collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
