// Package manager loads retention policies from YAML and keeps them
// current.
//
// A policy file holds a top-level "policies" list:
//
//	policies:
//	  - id: regulatory-7y
//	    name: Regulatory records
//	    applies_to: Policy
//	    classifications: [Confidential]
//	    retention_category: Regulatory
//	    retention_period_days: 2555
//	    retention_start_event: Published
//	    action_on_expiry: Archive
//	    notify_before_days: 30
//	    priority: 100
//	    condition: 'record.department == "Finance"'
//
// exclude_on_legal_hold and is_active default to true, and
// retention_start_event defaults to Created. A missing
// retention_period_days falls back to the category default. Unknown fields
// are rejected.
//
// PolicyLoader reads a file or a directory tree and validates every policy,
// collecting all problems into an *ErrorList of *ParseError and
// *ValidationError values that carry the file and line. Policy ids must be
// unique across the set.
//
// PolicyRegistry swaps whole policy sets atomically and implements
// retention.PolicySource. Its Version is a content hash, so an unchanged
// reload keeps the same version.
//
// Manager ties these together. It loads from a path or a Git clone,
// hot-reloads via fsnotify (file mode) or polling (git mode), and keeps the
// last good policy set when a reload fails.
//
//	mgr, err := manager.NewManager(ctx, &manager.Config{Path: "policies/", Watch: true}, calc)
//	if err != nil {
//		return err
//	}
//	if err := mgr.LoadPolicies(); err != nil {
//		return err
//	}
//	go mgr.Watch(ctx)
//	builder := retention.NewBuilder(store, holds, mgr, calc)
package manager
