package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// handleExportCSV streams the caller's most recent measurements as
// CSV, newest first, capped at exportLimit rows.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.Export(r.Context(), userID(r), exportLimit)
	if err != nil {
		s.logger.Error("export failed", "error", err)
		writeInternalError(w, "export failed")
		return
	}

	filename := fmt.Sprintf("report_%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	writer := csv.NewWriter(w)
	//nolint:errcheck // Best-effort writes; the client may disconnect mid-stream
	writer.Write([]string{"timestamp", "location_id", "device_id", "type", "value"})
	for _, row := range rows {
		//nolint:errcheck // Best-effort writes; the client may disconnect mid-stream
		writer.Write([]string{
			row.Timestamp.UTC().Format(time.RFC3339),
			row.LocationName,
			row.DeviceID,
			row.Metric,
			strconv.FormatFloat(row.Value, 'f', -1, 64),
		})
	}
	writer.Flush()
}
