package tracing

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys. Custom keys use the "custodian.*" namespace.
const (
	// Sweep attributes
	AttrSweepID  = attribute.Key("custodian.sweep.id")
	AttrDryRun   = attribute.Key("custodian.sweep.dry_run")
	AttrArchived = attribute.Key("custodian.sweep.archived")
	AttrDeleted  = attribute.Key("custodian.sweep.deleted")
	AttrSkipped  = attribute.Key("custodian.sweep.skipped")
	AttrErrors   = attribute.Key("custodian.sweep.errors")

	// Schedule attributes
	AttrEntries    = attribute.Key("custodian.schedule.entries")
	AttrFetchError = attribute.Key("custodian.schedule.fetch_errors")

	// Record attributes
	AttrEntityType = attribute.Key("custodian.entity.type")
	AttrEntityID   = attribute.Key("custodian.entity.id")
	AttrCount      = attribute.Key("custodian.entity.count")

	// Policy attributes
	AttrPolicyID      = attribute.Key("custodian.policy.id")
	AttrPolicyVersion = attribute.Key("custodian.policy.version")
	AttrPolicyCount   = attribute.Key("custodian.policy.count")

	// Hold attributes
	AttrHoldID = attribute.Key("custodian.hold.id")

	// Actor attributes
	AttrActor = attribute.Key("custodian.actor.id")
)
