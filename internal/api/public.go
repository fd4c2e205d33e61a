package api

import (
	"net/http"
)

// publicLocation is one element of GET /api/public/locations. It
// carries everything an unauthenticated dashboard needs to render a
// location: identity, position, liveness and chart-ready data.
type publicLocation struct {
	LocationID   string             `json:"location_id"`
	Name         string             `json:"name"`
	Area         string             `json:"area"`
	Latitude     *float64           `json:"latitude"`
	Longitude    *float64           `json:"longitude"`
	Online       bool               `json:"online"`
	LastSeen     *string            `json:"last_seen"`
	LatestValues map[string]float64 `json:"latest_values"`
	ChartHistory *chartHistory      `json:"chart_history"`
}

// chartHistory mirrors telemetry.ChartHistory on the wire.
type chartHistory struct {
	Labels []string             `json:"labels"`
	Series map[string][]float64 `json:"series"`
}

// handlePublicLocations lists every location with latest values and
// minute-bucketed chart series. No authentication: this backs the
// public dashboard and map.
func (s *Server) handlePublicLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.locations.List(r.Context())
	if err != nil {
		s.logger.Error("public location list failed", "error", err)
		writeInternalError(w, "could not list locations")
		return
	}

	results := make([]publicLocation, 0, len(locs))
	for i := range locs {
		loc := &locs[i]

		status, err := s.tracker.LocationStatus(r.Context(), loc.ID)
		if err != nil {
			s.logger.Error("location status failed", "location", loc.Name, "error", err)
			writeInternalError(w, "status derivation failed")
			return
		}

		latest, err := s.aggregator.LatestValues(r.Context(), loc.ID)
		if err != nil {
			s.logger.Error("latest values failed", "location", loc.Name, "error", err)
			writeInternalError(w, "aggregation failed")
			return
		}

		history, err := s.aggregator.ChartHistory(r.Context(), loc.ID)
		if err != nil {
			s.logger.Error("chart history failed", "location", loc.Name, "error", err)
			writeInternalError(w, "aggregation failed")
			return
		}

		name := loc.DisplayName
		if name == "" {
			name = loc.Name
		}
		results = append(results, publicLocation{
			LocationID:   loc.Name,
			Name:         name,
			Area:         loc.Area,
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			Online:       status.Online,
			LastSeen:     formatLastSeen(status.LastSeen),
			LatestValues: latest,
			ChartHistory: &chartHistory{
				Labels: history.Labels,
				Series: history.Series,
			},
		})
	}

	writeJSON(w, http.StatusOK, results)
}
