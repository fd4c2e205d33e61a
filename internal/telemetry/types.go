package telemetry

import (
	"strings"
	"time"
)

// Measurement is one immutable sensor reading fact.
type Measurement struct {
	ID         int64     `json:"id"`
	LocationID string    `json:"location_id"`
	DeviceID   string    `json:"device_id"`
	Type       string    `json:"type"`
	Value      float64   `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// ExportRow is one row of the owner-scoped tabular export.
type ExportRow struct {
	Timestamp    time.Time `json:"timestamp"`
	LocationName string    `json:"location"`
	DeviceID     string    `json:"device"`
	Metric       string    `json:"metric"`
	Value        float64   `json:"value"`
}

// TrackedMetrics is the closed set of metric keys the read models
// aggregate. Readings outside this set are stored but not charted.
var TrackedMetrics = []string{
	"pm25", "pm10", "co", "so2", "no2", "o3",
	"ph", "turbidity", "level",
}

// IsTracked reports whether a normalized metric key is in the tracked set.
func IsTracked(metric string) bool {
	for _, m := range TrackedMetrics {
		if m == metric {
			return true
		}
	}
	return false
}

// NormalizeMetric maps raw metric names onto canonical keys: lowercase
// with dots and spaces stripped, so PM2.5 and pm25 both become pm25.
func NormalizeMetric(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// ResolveTimestamp parses a caller-supplied ISO-8601 instant, falling
// back to now when the value is absent or malformed. Malformed
// timestamps are recovered, not rejected.
func ResolveTimestamp(raw string, now time.Time) time.Time {
	if raw == "" {
		return now.UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}
