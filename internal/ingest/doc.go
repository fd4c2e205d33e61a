// Package ingest accepts telemetry batches from registered devices,
// appends them to the measurement store and fans the readings out to
// live subscribers.
//
// Ingest is the write hot path: the store append is transactional and
// authoritative, everything after it (broadcast, time-series mirror)
// is best effort and never fails the request.
package ingest
