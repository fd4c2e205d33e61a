package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/envcloud/envcloud-core/internal/location"
	"github.com/envcloud/envcloud-core/internal/telemetry"
)

// systemStatusResponse is the response body for GET /api/status.
type systemStatusResponse struct {
	Online       bool    `json:"online"`
	LastIngestTS *string `json:"last_ingest_ts"`
}

// locationStatus is one element of GET /api/locations/status.
type locationStatus struct {
	LocationID string   `json:"location_id"`
	Name       string   `json:"name"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Online     bool     `json:"online"`
	LastSeen   *string  `json:"last_seen"`
}

// handleSystemStatus reports whether any measurement at all arrived
// recently.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.tracker.SystemStatus(r.Context())
	if err != nil {
		s.logger.Error("system status failed", "error", err)
		writeInternalError(w, "status check failed")
		return
	}

	writeJSON(w, http.StatusOK, systemStatusResponse{
		Online:       status.Online,
		LastIngestTS: formatLastSeen(status.LastSeen),
	})
}

// handleLocationsStatus lists the caller's locations with their
// derived online state.
func (s *Server) handleLocationsStatus(w http.ResponseWriter, r *http.Request) {
	locs, err := s.locations.ListByOwner(r.Context(), userID(r))
	if err != nil {
		s.logger.Error("location list failed", "error", err)
		writeInternalError(w, "could not list locations")
		return
	}

	results := make([]locationStatus, 0, len(locs))
	for i := range locs {
		loc := &locs[i]
		status, err := s.tracker.LocationStatus(r.Context(), loc.ID)
		if err != nil {
			s.logger.Error("location status failed", "location", loc.Name, "error", err)
			writeInternalError(w, "status check failed")
			return
		}

		name := loc.DisplayName
		if name == "" {
			name = loc.Name
		}
		results = append(results, locationStatus{
			LocationID: loc.Name,
			Name:       name,
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
			Online:     status.Online,
			LastSeen:   formatLastSeen(status.LastSeen),
		})
	}

	writeJSON(w, http.StatusOK, results)
}

// handleLocationStatus reports one location's derived online state.
func (s *Server) handleLocationStatus(w http.ResponseWriter, r *http.Request) {
	loc := s.lookupLocation(w, r, chi.URLParam(r, "name"))
	if loc == nil {
		return
	}

	status, err := s.tracker.LocationStatus(r.Context(), loc.ID)
	if err != nil {
		s.logger.Error("location status failed", "location", loc.Name, "error", err)
		writeInternalError(w, "status check failed")
		return
	}

	writeJSON(w, http.StatusOK, locationStatus{
		LocationID: loc.Name,
		Name:       loc.DisplayName,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		Online:     status.Online,
		LastSeen:   formatLastSeen(status.LastSeen),
	})
}

// capabilitiesResponse reports which metric families a location's
// devices have actually reported.
type capabilitiesResponse struct {
	HasAQI   bool `json:"has_aqi"`
	HasWater bool `json:"has_water"`
}

// airMetrics and waterMetrics partition the tracked metric set into
// dashboard families.
var (
	airMetrics   = map[string]bool{"pm25": true, "pm10": true, "co": true, "so2": true, "no2": true, "o3": true}
	waterMetrics = map[string]bool{"ph": true, "turbidity": true, "level": true}
)

// handleLocationCapabilities reports the metric families present at a
// location, derived from what its devices have reported so far. A
// location with no measurements yet claims both families so dashboards
// stay populated.
func (s *Server) handleLocationCapabilities(w http.ResponseWriter, r *http.Request) {
	loc := s.lookupLocation(w, r, chi.URLParam(r, "name"))
	if loc == nil {
		return
	}

	values, err := s.store.LatestValues(r.Context(), loc.ID)
	if err != nil {
		s.logger.Error("capabilities lookup failed", "location", loc.Name, "error", err)
		writeInternalError(w, "capabilities lookup failed")
		return
	}

	if len(values) == 0 {
		writeJSON(w, http.StatusOK, capabilitiesResponse{HasAQI: true, HasWater: true})
		return
	}

	var caps capabilitiesResponse
	for metric := range values {
		key := telemetry.NormalizeMetric(metric)
		if airMetrics[key] {
			caps.HasAQI = true
		}
		if waterMetrics[key] {
			caps.HasWater = true
		}
	}
	writeJSON(w, http.StatusOK, caps)
}

// lookupLocation resolves a location slug, writing the error response
// itself. Returns nil when the response is already written.
func (s *Server) lookupLocation(w http.ResponseWriter, r *http.Request, name string) *location.Location {
	loc, err := s.locations.GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, location.ErrNotFound) {
			writeNotFound(w, "location not found")
			return nil
		}
		s.logger.Error("location lookup failed", "location", name, "error", err)
		writeInternalError(w, "location lookup failed")
		return nil
	}
	return loc
}

func formatLastSeen(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
