// Package database provides the SQLite connection and schema migration
// runner for Environmental Cloud Core.
//
// The store holds locations, devices, measurements, and owners. WAL mode
// plus a single pooled writer connection matches SQLite's concurrency
// model; readers never block on the writer.
package database
