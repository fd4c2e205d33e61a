// Package api implements the HTTP REST API and WebSocket server for
// Environmental Cloud Core.
//
// This package provides:
//   - Device registration and telemetry ingest endpoints
//   - Owner-scoped status, device and export endpoints
//   - A public, unauthenticated location list with chart-ready data
//   - Per-location WebSocket subscriptions for live readings
//   - JWT authentication (signup/login against the user store)
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server sits between field devices, dashboards and the
// telemetry core. Devices push batches to /api/ingest (or over MQTT
// via the ingest bridge); every accepted batch lands in the measurement
// store and fans out through the hub to WebSocket subscribers of the
// resolved location.
//
// # Graceful Degradation
//
// The server operates without MQTT and without the time-series mirror.
// HTTP ingest, reads and WebSocket subscriptions always work.
package api
