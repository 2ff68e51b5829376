// Package records defines the governed record model shared by the retention
// engine, the legal-hold manager and the record store backends.
//
// # Governed Records
//
// Two entity types are subject to retention rules:
//
//   - Policy: a published policy document. Policies carry denormalized
//     legal-hold flags and are only ever soft-archived.
//   - Acknowledgement: a receipt recorded when a user acknowledges a policy.
//     Acknowledgements may be physically removed once an archive copy exists.
//
// Store backends map their native rows into Record once, at the adapter
// edge. Nothing past the Store interface sees untyped data.
//
// # Collections
//
// Besides governed records, a Store persists legal holds and archive
// records. Legal holds are never deleted; archive records are append-only.
package records
