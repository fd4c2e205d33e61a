package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteMeasurement mirrors a single accepted sensor reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Tags carry the identity (location, device, metric), the field carries
// the value. The timestamp is the resolved measurement time, not the
// write time, so delayed readings land in the right place.
func (c *Client) WriteMeasurement(locationID, deviceID, metric string, value float64, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"measurements",
		map[string]string{
			"location_id": locationID,
			"device_id":   deviceID,
			"metric":      metric,
		},
		map[string]interface{}{
			"value": value,
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
// Tags should stay low cardinality.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
