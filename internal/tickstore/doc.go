// Package tickstore implements a bitemporal tick store on Postgres.
//
// Data is partitioned by (dataset, symbol, as-at date). Each insert
// creates a new immutable version of a partition; deletes write tombstone
// versions. Queries pin an as-of time and read the newest version at or
// before it, so a query re-run with the same as-of always returns the
// same rows regardless of later backfills.
package tickstore
