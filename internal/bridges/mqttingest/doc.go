// Package mqttingest feeds telemetry arriving over MQTT into the
// ingest pipeline. Devices that cannot speak HTTP publish their
// batches to envcloud/ingest/{device_id}; the bridge parses each
// message and runs it through the same validation, storage and
// broadcast path as the HTTP endpoint.
package mqttingest
