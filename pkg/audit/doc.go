// Package audit defines the audit event emitted for every retention and
// legal-hold decision, and the sink and emitter contracts that carry it.
//
// # Emission
//
// Engine components hold an Emitter and call Emit after each primary
// operation. Emit never returns an error: audit failures are logged and
// swallowed so they cannot break the operation being audited. The
// recorder subpackage provides the production Emitter, which buffers
// events and writes them to a Sink from a background worker.
//
// # Sinks
//
// The sink subpackage provides Sink implementations:
//
//   - Memory: in-process slice, queryable; used by tests
//   - SQLite: durable local log on modernc.org/sqlite, queryable
//   - PubSub: publishes each event to a Google Cloud Pub/Sub topic
//   - Log: writes each event to the structured logger
//   - Multi: fans one event out to several sinks
package audit
