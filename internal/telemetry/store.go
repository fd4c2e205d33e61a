package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoMeasurements is returned by latest-row queries when nothing has
// been recorded in the queried scope.
var ErrNoMeasurements = errors.New("no measurements recorded")

// timestampLayout is fixed width so lexicographic ordering of the TEXT
// column matches chronological ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Store defines the measurement persistence interface.
type Store interface {
	Append(ctx context.Context, rows []Measurement) error
	LatestForLocation(ctx context.Context, locationID string) (*Measurement, error)
	LatestForDevice(ctx context.Context, deviceID string) (*Measurement, error)
	LatestGlobal(ctx context.Context) (*Measurement, error)
	LatestValues(ctx context.Context, locationID string) (map[string]float64, error)
	RecentWindow(ctx context.Context, locationID string, limit int) ([]Measurement, error)
	Export(ctx context.Context, ownerID string, limit int) ([]ExportRow, error)
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed measurement store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append writes all rows in one transaction. Readers never observe a
// partial metric set from a single ingest call.
func (s *SQLiteStore) Append(ctx context.Context, rows []Measurement) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting append transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO measurements (location_id, device_id, type, value, timestamp)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing append: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // statement closed with tx

	for i := range rows {
		r := &rows[i]
		res, err := stmt.ExecContext(ctx,
			r.LocationID, r.DeviceID, r.Type, r.Value,
			r.Timestamp.UTC().Format(timestampLayout))
		if err != nil {
			return fmt.Errorf("appending measurement %s: %w", r.Type, err)
		}
		r.ID, _ = res.LastInsertId() //nolint:errcheck // always succeeds on SQLite
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing append: %w", err)
	}
	return nil
}

const measurementColumns = `id, location_id, device_id, type, value, timestamp`

// LatestForLocation returns the most recent measurement from any device
// under the location.
func (s *SQLiteStore) LatestForLocation(ctx context.Context, locationID string) (*Measurement, error) {
	return s.latest(ctx,
		`SELECT `+measurementColumns+` FROM measurements
		 WHERE location_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, locationID)
}

// LatestForDevice returns the device's own most recent measurement.
func (s *SQLiteStore) LatestForDevice(ctx context.Context, deviceID string) (*Measurement, error) {
	return s.latest(ctx,
		`SELECT `+measurementColumns+` FROM measurements
		 WHERE device_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, deviceID)
}

// LatestGlobal returns the most recent measurement across all locations.
func (s *SQLiteStore) LatestGlobal(ctx context.Context) (*Measurement, error) {
	return s.latest(ctx,
		`SELECT `+measurementColumns+` FROM measurements
		 ORDER BY timestamp DESC, id DESC LIMIT 1`)
}

func (s *SQLiteStore) latest(ctx context.Context, query string, args ...any) (*Measurement, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	m, err := scanMeasurementFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoMeasurements
		}
		return nil, err
	}
	return m, nil
}

// LatestValues returns the last recorded value per metric key for the
// location. The scan runs in chronological order and overwrites, so
// later rows win and timestamp ties resolve to the most recent row.
func (s *SQLiteStore) LatestValues(ctx context.Context, locationID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, value FROM measurements
		 WHERE location_id = ? ORDER BY timestamp ASC, id ASC`, locationID)
	if err != nil {
		return nil, fmt.Errorf("querying latest values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]float64)
	for rows.Next() {
		var metric string
		var value float64
		if err := rows.Scan(&metric, &value); err != nil {
			return nil, fmt.Errorf("scanning latest value: %w", err)
		}
		values[NormalizeMetric(metric)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating latest values: %w", err)
	}
	return values, nil
}

// RecentWindow returns the most recent limit rows for the location,
// newest first.
func (s *SQLiteStore) RecentWindow(ctx context.Context, locationID string, limit int) ([]Measurement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+measurementColumns+` FROM measurements
		 WHERE location_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		locationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent window: %w", err)
	}
	defer rows.Close()

	var window []Measurement
	for rows.Next() {
		m, err := scanMeasurementFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning measurement row: %w", err)
		}
		window = append(window, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent window: %w", err)
	}
	return window, nil
}

// Export returns the caller's measurement history as tabular rows,
// newest first, joined with location names for readability.
func (s *SQLiteStore) Export(ctx context.Context, ownerID string, limit int) ([]ExportRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.timestamp, l.name, m.device_id, m.type, m.value
		 FROM measurements m
		 JOIN devices d ON d.device_id = m.device_id
		 JOIN locations l ON l.id = m.location_id
		 WHERE d.owner_id = ?
		 ORDER BY m.timestamp DESC, m.id DESC LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying export: %w", err)
	}
	defer rows.Close()

	export := []ExportRow{}
	for rows.Next() {
		var r ExportRow
		var ts string
		if err := rows.Scan(&ts, &r.LocationName, &r.DeviceID, &r.Metric, &r.Value); err != nil {
			return nil, fmt.Errorf("scanning export row: %w", err)
		}
		r.Timestamp = parseTime(ts)
		export = append(export, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating export rows: %w", err)
	}
	return export, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanMeasurementFrom(s scanner) (*Measurement, error) {
	var m Measurement
	var ts string

	err := s.Scan(&m.ID, &m.LocationID, &m.DeviceID, &m.Type, &m.Value, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning measurement: %w", err)
	}

	m.Timestamp = parseTime(ts)
	return &m, nil
}

// parseTime parses an RFC3339 timestamp, returning the zero time on failure.
func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
