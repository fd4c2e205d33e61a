// Package telemetry holds the append-only measurement store and the
// read models derived from it.
//
// The store writes one row per metric per ingest call, all sharing a
// resolved timestamp, inside a single transaction so readers never see
// a partial metric set. Rows are never updated or deleted.
//
// Two read models sit on top: the freshness tracker derives
// online/offline state from the age of the most recent measurement
// (strictly age < threshold), and the aggregator builds latest-value
// maps and minute-bucketed chart series over a bounded window of raw
// rows.
package telemetry
