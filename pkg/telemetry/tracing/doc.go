// Package tracing provides OpenTelemetry tracing for custodian.
//
// New installs a global tracer provider exporting to an OTLP gRPC collector.
// Instrumented packages start spans with Start and finish them with End, so
// they work unchanged whether tracing is enabled or not:
//
//	ctx, span := tracing.Start(ctx, "legalhold.place",
//		tracing.AttrEntityType.String(string(req.EntityType)),
//		tracing.AttrCount.Int(len(req.EntityIDs)),
//	)
//	defer func() { tracing.End(span, err) }()
//
// # Sampling
//
// Three strategies are supported, each wrapped in a parent-based sampler:
//   - always: sample every trace
//   - never: sample no trace
//   - ratio: sample sample_ratio of traces by trace id
//
// # Propagation
//
// The W3C Trace Context and Baggage propagators are installed. InjectToMap
// copies the current trace context into Pub/Sub message attributes so
// downstream consumers of audit events and notifications can join the trace.
package tracing
