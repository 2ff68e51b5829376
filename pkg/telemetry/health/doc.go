// Package health provides liveness and readiness probes for a running
// custodian process.
//
// The probes are served on the metrics listener:
//
//   - /healthz: the process is up
//   - /readyz: the record store answers, the latest policy load succeeded
//     and the retention scheduler is running
//   - /version: build information
//
// Readiness returns 503 with the failing checks while any check fails, so
// an orchestrator can stop routing to a process whose policy reload broke.
package health
