package device

import (
	"errors"
	"time"
)

// Device represents a field sensor or camera unit.
//
// OwnerID is empty for an unclaimed device. A device always points at
// exactly one location; re-registration by the owner moves it.
type Device struct {
	DeviceID   string    `json:"device_id"`
	LocationID string    `json:"location_id"`
	OwnerID    string    `json:"owner_id,omitempty"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ErrNotFound is returned when a device_id does not exist or is not
// owned by the caller for owner-scoped operations.
var ErrNotFound = errors.New("device not found")
