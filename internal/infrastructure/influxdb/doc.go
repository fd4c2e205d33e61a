// Package influxdb mirrors accepted measurements to an InfluxDB v2
// instance for long-term retention and dashboarding.
//
// SQLite remains the source of truth; the mirror is optional and
// best-effort. Writes are non-blocking and batched, so a slow or down
// InfluxDB never stalls the ingest path.
package influxdb
