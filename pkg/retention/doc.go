// Package retention decides what must happen to each governed record and
// carries those decisions out.
//
// # Pipeline
//
// A schedule is built in four steps per record:
//
//  1. Matcher selects the single applicable Policy (highest priority first,
//     ascending policy id on ties).
//  2. Calculator computes the retention start, the expiry date and the
//     countdown in whole days. Indefinite periods have no expiry.
//  3. The legal-hold index, fetched once per build, reports whether the
//     record is held.
//  4. Resolve maps countdown, hold status and policy to an action label.
//
// Records without a matching policy produce no entry.
//
// # Execution
//
// Executor.ProcessExpired takes the expired entries of a fresh schedule and
// applies each policy's expiry action, skipping and counting held ones.
// Archive snapshots the record before marking it archived. Delete archives
// first and only physically removes acknowledgements. Per-entry failures are collected
// into the BatchResult; the batch never aborts. A dry run walks the same
// branches and reports the same counters without touching the store.
//
// # Scheduling
//
// Scheduler runs ProcessExpired on a cron expression.
//
//	sched := retention.NewScheduler(executor, "0 3 * * *", false)
//	if err := sched.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sched.Stop()
package retention
