// Package telemetry groups the observability packages used by custodian.
//
//   - logging: slog setup with PII redaction and sweep-scoped context
//   - metrics: Prometheus collectors for sweeps, schedules, holds, policy
//     reloads and audit failures
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness probes served next to metrics
package telemetry
