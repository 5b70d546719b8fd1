// Package instrumentation provides OpenTelemetry meters and tracers for the
// proxy. When disabled it wires no-op providers so instrumented code paths
// carry no overhead and callers never need nil checks.
package instrumentation
