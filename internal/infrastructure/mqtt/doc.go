// Package mqtt wraps paho.mqtt.golang for Environmental Cloud Core.
//
// Sensor gateways that cannot speak HTTP publish readings to
// envcloud/ingest/{device_id}; the ingest bridge subscribes to the
// wildcard and feeds the same pipeline as the HTTP endpoint.
//
// The client provides connection management, publish/subscribe with
// timeouts, automatic reconnection with subscription restoration, and
// a Last Will message so other services can detect when Core drops off
// the broker.
package mqtt
