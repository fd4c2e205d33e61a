package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/envcloud/envcloud-core/internal/ingest"
)

// ingestResponse is the response body for POST /api/ingest.
type ingestResponse struct {
	Status           string `json:"status"`
	Rows             int    `json:"rows"`
	ResolvedLocation string `json:"resolved_location"`
}

// handleIngest accepts one telemetry batch from a device. The device
// must already be registered; the resolved location comes from the
// registry, never from the payload.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var p ingest.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	res, err := s.ingest.Ingest(r.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrValidation):
			writeBadRequest(w, "device_id is required")
		case errors.Is(err, ingest.ErrUnregisteredDevice):
			writeBadRequest(w, "device not registered, call /api/devices/register first")
		default:
			s.logger.Error("ingest failed", "device_id", p.DeviceID, "error", err)
			writeInternalError(w, "ingest failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Status:           "success",
		Rows:             res.Rows,
		ResolvedLocation: res.ResolvedLocation,
	})
}
