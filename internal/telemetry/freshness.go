package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Freshness thresholds. A location is live when any of its sensors
// reported recently; a single device's own badge uses a tighter bound
// so it never claims online off the back of a neighbour's report.
const (
	DefaultLocationThreshold = 45 * time.Second
	DefaultDeviceThreshold   = 30 * time.Second
)

// Status is the derived online/offline state of a scope.
type Status struct {
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// Tracker derives online/offline status from measurement recency.
//
// The comparison is strictly age < threshold: a measurement exactly at
// the threshold age counts as offline.
type Tracker struct {
	store             Store
	locationThreshold time.Duration
	deviceThreshold   time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewTracker creates a freshness tracker. Non-positive thresholds fall
// back to the defaults.
func NewTracker(store Store, locationThreshold, deviceThreshold time.Duration) *Tracker {
	if locationThreshold <= 0 {
		locationThreshold = DefaultLocationThreshold
	}
	if deviceThreshold <= 0 {
		deviceThreshold = DefaultDeviceThreshold
	}
	return &Tracker{
		store:             store,
		locationThreshold: locationThreshold,
		deviceThreshold:   deviceThreshold,
		now:               time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// LocationStatus reports whether any device under the location reported
// within the location threshold.
func (t *Tracker) LocationStatus(ctx context.Context, locationID string) (Status, error) {
	m, err := t.store.LatestForLocation(ctx, locationID)
	return t.status(m, err, t.locationThreshold)
}

// DeviceStatus reports whether the device itself reported within the
// device threshold.
func (t *Tracker) DeviceStatus(ctx context.Context, deviceID string) (Status, error) {
	m, err := t.store.LatestForDevice(ctx, deviceID)
	return t.status(m, err, t.deviceThreshold)
}

// SystemStatus reports whether anything at all reported recently,
// using the device threshold.
func (t *Tracker) SystemStatus(ctx context.Context) (Status, error) {
	m, err := t.store.LatestGlobal(ctx)
	return t.status(m, err, t.deviceThreshold)
}

func (t *Tracker) status(m *Measurement, err error, threshold time.Duration) (Status, error) {
	if err != nil {
		if errors.Is(err, ErrNoMeasurements) {
			return Status{Online: false}, nil
		}
		return Status{}, fmt.Errorf("deriving freshness: %w", err)
	}

	age := t.now().Sub(m.Timestamp)
	ts := m.Timestamp
	return Status{
		Online:   age < threshold,
		LastSeen: &ts,
	}, nil
}
