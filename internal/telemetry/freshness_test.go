package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestTracker_LocationStatus(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	tracker := NewTracker(store, DefaultLocationThreshold, DefaultDeviceThreshold)

	seen := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	appendRows(t, store, []Measurement{
		{LocationID: "loc-1", DeviceID: "D1", Type: "pm25", Value: 42, Timestamp: seen},
	})

	tests := []struct {
		name       string
		now        time.Time
		wantOnline bool
	}{
		{"well within threshold", seen.Add(44 * time.Second), true},
		{"exactly at threshold", seen.Add(45 * time.Second), false},
		{"past threshold", seen.Add(46 * time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker.SetClock(func() time.Time { return tt.now })

			status, err := tracker.LocationStatus(context.Background(), "loc-1")
			if err != nil {
				t.Fatalf("LocationStatus() error = %v", err)
			}
			if status.Online != tt.wantOnline {
				t.Errorf("Online = %v, want %v", status.Online, tt.wantOnline)
			}
			if status.LastSeen == nil || !status.LastSeen.Equal(seen) {
				t.Errorf("LastSeen = %v, want %v", status.LastSeen, seen)
			}
		})
	}
}

func TestTracker_DeviceUsesTighterThreshold(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	tracker := NewTracker(store, DefaultLocationThreshold, DefaultDeviceThreshold)

	seen := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	appendRows(t, store, []Measurement{
		{LocationID: "loc-1", DeviceID: "D1", Type: "pm25", Value: 42, Timestamp: seen},
	})

	// 35s out: the location threshold (45s) still passes, the device
	// threshold (30s) does not.
	tracker.SetClock(func() time.Time { return seen.Add(35 * time.Second) })

	locStatus, err := tracker.LocationStatus(context.Background(), "loc-1")
	if err != nil {
		t.Fatalf("LocationStatus() error = %v", err)
	}
	if !locStatus.Online {
		t.Error("location should still be online at 35s")
	}

	devStatus, err := tracker.DeviceStatus(context.Background(), "D1")
	if err != nil {
		t.Fatalf("DeviceStatus() error = %v", err)
	}
	if devStatus.Online {
		t.Error("device should be offline at 35s")
	}
}

func TestTracker_SystemStatus(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	tracker := NewTracker(store, DefaultLocationThreshold, DefaultDeviceThreshold)

	old := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	recent := old.Add(5 * time.Minute)
	appendRows(t, store, []Measurement{
		{LocationID: "loc-1", DeviceID: "D1", Type: "pm25", Value: 42, Timestamp: old},
		{LocationID: "loc-2", DeviceID: "D2", Type: "ph", Value: 7.2, Timestamp: recent},
	})

	tracker.SetClock(func() time.Time { return recent.Add(10 * time.Second) })

	status, err := tracker.SystemStatus(context.Background())
	if err != nil {
		t.Fatalf("SystemStatus() error = %v", err)
	}
	if !status.Online {
		t.Error("system should be online: the newest row anywhere is 10s old")
	}
	if status.LastSeen == nil || !status.LastSeen.Equal(recent) {
		t.Errorf("LastSeen = %v, want %v", status.LastSeen, recent)
	}
}

func TestTracker_NoMeasurements(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	tracker := NewTracker(store, DefaultLocationThreshold, DefaultDeviceThreshold)

	status, err := tracker.LocationStatus(context.Background(), "loc-1")
	if err != nil {
		t.Fatalf("LocationStatus() error = %v", err)
	}
	if status.Online {
		t.Error("location with no measurements should be offline")
	}
	if status.LastSeen != nil {
		t.Errorf("LastSeen = %v, want nil", status.LastSeen)
	}

	status, err = tracker.SystemStatus(context.Background())
	if err != nil {
		t.Fatalf("SystemStatus() error = %v", err)
	}
	if status.Online {
		t.Error("empty system should be offline")
	}
}
