package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/envcloud/envcloud-core/internal/registration"
)

// registerResponse is the response body for POST /api/devices/register.
type registerResponse struct {
	Status             string `json:"status"`
	DeviceID           string `json:"device_id"`
	AssignedLocationID string `json:"assigned_location_id"`
	FriendlyName       string `json:"friendly_name"`
}

// handleRegister binds a device to a location for the authenticated
// owner, creating or reusing the location per the registration
// protocol.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in registration.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	res, err := s.registration.Register(r.Context(), userID(r), in)
	if err != nil {
		switch {
		case errors.Is(err, registration.ErrValidation):
			writeBadRequest(w, err.Error())
		case errors.Is(err, registration.ErrConflict):
			writeConflict(w, "device already registered to another owner")
		case errors.Is(err, registration.ErrSequenceExhausted):
			writeConflict(w, "could not reserve a location, retry")
		default:
			s.logger.Error("registration failed", "device_id", in.DeviceID, "error", err)
			writeInternalError(w, "registration failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		Status:             "success",
		DeviceID:           in.DeviceID,
		AssignedLocationID: res.LocationName,
		FriendlyName:       res.DisplayName,
	})
}
