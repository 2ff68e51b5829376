// Custodian is a retention and legal-hold decision engine for governed
// records.
//
// It computes when every policy document, acknowledgement and audit record
// reaches the end of its retention period, honours legal holds that freeze
// records under litigation or investigation, and applies the configured
// expiry action (archive, delete, review or notify) in scheduled sweeps.
//
// Usage:
//
//	# Start the scheduler with the default configuration
//	custodian run
//
//	# Show records expiring in the next 30 days
//	custodian schedule --expiring 30
//
//	# Preview a sweep without changing anything
//	custodian sweep --dry-run
//
//	# Place a legal hold
//	custodian hold place --type Policy --id pol-1 --reason "Smith v. Acme"
//
//	# Validate policy files
//	custodian policy validate ./policies
package main

func main() {
	Execute()
}
