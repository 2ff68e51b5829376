// Package legalhold tracks legal holds on governed records.
//
// A hold suspends every retention action on its target. The Registry answers
// "is this record held" from the hold collection of the record store; the
// Manager places, releases and expires holds, keeping the denormalized hold
// flags on Policy records in step and emitting an audit event for each
// change.
//
// A hold is holding while its status is Active and its end date, if any,
// has not passed. Holds are never deleted.
package legalhold
