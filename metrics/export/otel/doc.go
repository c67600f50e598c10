// Package otel binds gate metrics to OpenTelemetry observable instruments.
//
// [NewExporter] registers one Int64ObservableCounter per gate counter and one
// Int64ObservableGauge per histogram bucket. A single callback reads the gate snapshot
// on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate gate state.
package otel
