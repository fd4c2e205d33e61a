package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for location persistence operations.
type Repository interface {
	Create(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, id string) (*Location, error)
	GetByName(ctx context.Context, name string) (*Location, error)
	FindOwnedByGroup(ctx context.Context, ownerID, areaNorm, siteTypeNorm string) (*Location, error)
	MaxSequence(ctx context.Context, areaNorm, siteTypeNorm string) (int, error)
	Claim(ctx context.Context, id, ownerID string) error
	List(ctx context.Context) ([]Location, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Location, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed location repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const locationColumns = `id, owner_id, name, display_name, area, site_type, label,
	latitude, longitude, area_norm, site_type_norm, seq, created_at, updated_at`

// Create inserts a new location. The ID is generated if empty.
//
// Unique violations map to sentinels the registration service acts on:
// ErrNameExists for a taken slug, ErrSequenceTaken when a concurrent
// registration won the race for the same generated sequence.
func (r *SQLiteRepository) Create(ctx context.Context, loc *Location) error {
	if loc.ID == "" {
		loc.ID = "loc-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	loc.CreatedAt = parseTime(now)
	loc.UpdatedAt = loc.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (id, owner_id, name, display_name, area, site_type, label,
			latitude, longitude, area_norm, site_type_norm, seq, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loc.ID, nullStr(loc.OwnerID), loc.Name, loc.DisplayName, loc.Area, loc.SiteType,
		loc.Label, nullFloat(loc.Latitude), nullFloat(loc.Longitude),
		loc.AreaNorm, loc.SiteTypeNorm, loc.Seq, now, now,
	)
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "locations.name"):
			return ErrNameExists
		case strings.Contains(msg, "locations.area_norm"):
			return ErrSequenceTaken
		}
		return fmt.Errorf("inserting location %s: %w", loc.Name, err)
	}
	return nil
}

// GetByID returns a single location by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Location, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE id = ?`, id)
	return scanLocation(row)
}

// GetByName returns a single location by its unique name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Location, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE name = ?`, name)
	return scanLocation(row)
}

// FindOwnedByGroup returns the caller's oldest location matching the
// normalized area + site type, or ErrNotFound. Matching for reuse is
// owner-scoped; sequence counting is not.
func (r *SQLiteRepository) FindOwnedByGroup(ctx context.Context, ownerID, areaNorm, siteTypeNorm string) (*Location, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations
		 WHERE owner_id = ? AND area_norm = ? AND site_type_norm = ?
		 ORDER BY seq ASC, created_at ASC LIMIT 1`,
		ownerID, areaNorm, siteTypeNorm)
	return scanLocation(row)
}

// MaxSequence returns the highest sequence number reserved for the
// normalized area + site type across all owners, or 0 if none exist.
func (r *SQLiteRepository) MaxSequence(ctx context.Context, areaNorm, siteTypeNorm string) (int, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM locations WHERE area_norm = ? AND site_type_norm = ?`,
		areaNorm, siteTypeNorm).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("querying max sequence: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

// Claim sets the owner of an unclaimed location. Returns
// ErrAlreadyClaimed if another owner got there first, ErrNotFound if
// the location does not exist.
func (r *SQLiteRepository) Claim(ctx context.Context, id, ownerID string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE locations SET owner_id = ?, updated_at = ? WHERE id = ? AND owner_id IS NULL`,
		ownerID, now, id)
	if err != nil {
		return fmt.Errorf("claiming location %s: %w", id, err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyClaimed
	}
	return nil
}

// List returns all locations ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Location, error) {
	return r.queryLocations(ctx,
		`SELECT `+locationColumns+` FROM locations ORDER BY name`)
}

// ListByOwner returns the caller's locations ordered by name.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]Location, error) {
	return r.queryLocations(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE owner_id = ? ORDER BY name`, ownerID)
}

// queryLocations executes a query and returns a slice of Location.
func (r *SQLiteRepository) queryLocations(ctx context.Context, query string, args ...any) ([]Location, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		l, err := scanLocationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location row: %w", err)
		}
		locations = append(locations, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating location rows: %w", err)
	}
	if locations == nil {
		locations = []Location{}
	}
	return locations, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanLocation scans a single row into a Location (for QueryRow).
func scanLocation(row *sql.Row) (*Location, error) {
	l, err := scanLocationFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// scanLocationRow scans a location from a Rows cursor.
func scanLocationRow(rows *sql.Rows) (*Location, error) {
	return scanLocationFrom(rows)
}

func scanLocationFrom(s scanner) (*Location, error) {
	var l Location
	var ownerID sql.NullString
	var lat, lon sql.NullFloat64
	var createdAt, updatedAt string

	err := s.Scan(&l.ID, &ownerID, &l.Name, &l.DisplayName, &l.Area, &l.SiteType,
		&l.Label, &lat, &lon, &l.AreaNorm, &l.SiteTypeNorm, &l.Seq,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning location: %w", err)
	}

	if ownerID.Valid {
		l.OwnerID = ownerID.String
	}
	if lat.Valid {
		l.Latitude = &lat.Float64
	}
	if lon.Valid {
		l.Longitude = &lon.Float64
	}
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)

	return &l, nil
}

// nullStr converts an empty string to a NULL for nullable columns.
func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullFloat converts a *float64 to a sql.NullFloat64 for nullable columns.
func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// parseTime parses an RFC3339 timestamp, returning the zero time on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
