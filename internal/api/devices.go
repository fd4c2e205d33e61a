package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/envcloud/envcloud-core/internal/device"
	"github.com/envcloud/envcloud-core/internal/location"
)

// ownedDevice is one element of GET /api/devices.
type ownedDevice struct {
	DeviceID     string  `json:"device_id"`
	Type         string  `json:"type"`
	LocationName string  `json:"location_name"`
	LocationID   *string `json:"location_id"`
	LastSeen     *string `json:"last_seen"`
	Status       string  `json:"status"`
}

// handleListDevices lists the caller's devices with their bound
// location and per-device freshness.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devs, err := s.devices.ListByOwner(r.Context(), userID(r))
	if err != nil {
		s.logger.Error("device list failed", "error", err)
		writeInternalError(w, "could not list devices")
		return
	}

	results := make([]ownedDevice, 0, len(devs))
	for i := range devs {
		dev := &devs[i]

		entry := ownedDevice{
			DeviceID:     dev.DeviceID,
			Type:         dev.Type,
			LocationName: "Unassigned",
		}

		loc, err := s.locations.GetByID(r.Context(), dev.LocationID)
		switch {
		case err == nil:
			name := loc.DisplayName
			if name == "" {
				name = loc.Name
			}
			entry.LocationName = name
			entry.LocationID = &loc.Name
		case !errors.Is(err, location.ErrNotFound):
			s.logger.Error("location lookup failed", "location_id", dev.LocationID, "error", err)
			writeInternalError(w, "could not list devices")
			return
		}

		status, err := s.tracker.DeviceStatus(r.Context(), dev.DeviceID)
		if err != nil {
			s.logger.Error("device status failed", "device_id", dev.DeviceID, "error", err)
			writeInternalError(w, "could not list devices")
			return
		}
		entry.LastSeen = formatLastSeen(status.LastSeen)
		entry.Status = "OFFLINE"
		if status.Online {
			entry.Status = "ONLINE"
		}

		results = append(results, entry)
	}

	writeJSON(w, http.StatusOK, results)
}

// handleUnlinkDevice releases the caller's claim on a device. The
// device row, its location binding and all measurement history are
// kept; only ownership is cleared.
func (s *Server) handleUnlinkDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	if err := s.registration.Unlink(r.Context(), userID(r), deviceID); err != nil {
		if errors.Is(err, device.ErrNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device unlink failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "unlink failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"device_id": deviceID,
	})
}
