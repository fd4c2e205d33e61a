package mqtt

import "fmt"

// Topic prefixes for the Environmental Cloud MQTT hierarchy.
//
// Ingest topics use the flat scheme: envcloud/ingest/{device_id}.
// The device ID in the topic is informational; the authoritative device
// identity comes from the JSON payload.
const (
	// TopicPrefix is the base for all Environmental Cloud topics.
	TopicPrefix = "envcloud"

	// TopicPrefixSystem is the base for system status topics.
	TopicPrefixSystem = "envcloud/system"
)

// Topics provides builders for Environmental Cloud MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// Ingest returns the telemetry ingest topic for a device.
//
// Example: envcloud/ingest/esp32-A1
func (Topics) Ingest(deviceID string) string {
	return fmt.Sprintf("%s/ingest/%s", TopicPrefix, deviceID)
}

// AllIngest returns the wildcard pattern matching every ingest topic.
//
// Example: envcloud/ingest/+
func (Topics) AllIngest() string {
	return fmt.Sprintf("%s/ingest/+", TopicPrefix)
}

// SystemStatus returns the topic for Core's own online/offline status.
//
// Example: envcloud/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// Live returns the topic mirroring hub broadcasts for a location.
//
// Example: envcloud/live/loc-7f3a
func (Topics) Live(locationID string) string {
	return fmt.Sprintf("%s/live/%s", TopicPrefix, locationID)
}
