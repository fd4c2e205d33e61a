package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for device persistence operations.
type Repository interface {
	GetByID(ctx context.Context, deviceID string) (*Device, error)
	Upsert(ctx context.Context, dev *Device) error
	Unlink(ctx context.Context, ownerID, deviceID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]Device, error)
	ListByLocation(ctx context.Context, locationID string) ([]Device, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed device repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `device_id, location_id, owner_id, type, created_at, updated_at`

// GetByID returns a single device by its caller-supplied identity.
func (r *SQLiteRepository) GetByID(ctx context.Context, deviceID string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE device_id = ?`, deviceID)
	d, err := scanDeviceFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// Upsert creates the device or updates its location, type, and owner.
// Move semantics: re-registering an existing device rebinds it to the
// resolved location. Ownership checks happen in the registration
// service before this is called.
func (r *SQLiteRepository) Upsert(ctx context.Context, dev *Device) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (device_id, location_id, owner_id, type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET
			location_id = excluded.location_id,
			owner_id = excluded.owner_id,
			type = excluded.type,
			updated_at = excluded.updated_at`,
		dev.DeviceID, dev.LocationID, nullStr(dev.OwnerID), dev.Type, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting device %s: %w", dev.DeviceID, err)
	}
	return nil
}

// Unlink clears a device's owner. Location and measurement history are
// kept. Fails with ErrNotFound if the device does not exist or is not
// owned by the caller.
func (r *SQLiteRepository) Unlink(ctx context.Context, ownerID, deviceID string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET owner_id = NULL, updated_at = ? WHERE device_id = ? AND owner_id = ?`,
		now, deviceID, ownerID)
	if err != nil {
		return fmt.Errorf("unlinking device %s: %w", deviceID, err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOwner returns the caller's devices ordered by device_id.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]Device, error) {
	return r.queryDevices(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE owner_id = ? ORDER BY device_id`, ownerID)
}

// ListByLocation returns devices bound to a location ordered by device_id.
func (r *SQLiteRepository) ListByLocation(ctx context.Context, locationID string) ([]Device, error) {
	return r.queryDevices(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE location_id = ? ORDER BY device_id`, locationID)
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDeviceFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	if devices == nil {
		devices = []Device{}
	}
	return devices, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanDeviceFrom(s scanner) (*Device, error) {
	var d Device
	var ownerID sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&d.DeviceID, &d.LocationID, &ownerID, &d.Type, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	if ownerID.Valid {
		d.OwnerID = ownerID.String
	}
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)

	return &d, nil
}

// nullStr converts an empty string to a NULL for nullable columns.
func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseTime parses an RFC3339 timestamp, returning the zero time on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
