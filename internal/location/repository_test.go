package location

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the locations table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE locations (
			id TEXT PRIMARY KEY,
			owner_id TEXT,
			name TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			area TEXT NOT NULL DEFAULT '',
			site_type TEXT NOT NULL DEFAULT '',
			label TEXT NOT NULL DEFAULT '',
			latitude REAL,
			longitude REAL,
			area_norm TEXT NOT NULL DEFAULT '',
			site_type_norm TEXT NOT NULL DEFAULT '',
			seq INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE UNIQUE INDEX idx_locations_group_seq
			ON locations(area_norm, site_type_norm, seq) WHERE seq > 0;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Yelahanka", "YELAHANKA"},
		{"yelahanka", "YELAHANKA"},
		{"New Town", "NEWTOWN"},
		{"  Bore well ", "BOREWELL"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGeneratedName(t *testing.T) {
	if got := GeneratedName("YELAHANKA", "POLE", 1); got != "YELAHANKA_POLE_01" {
		t.Errorf("GeneratedName() = %q, want YELAHANKA_POLE_01", got)
	}
	if got := GeneratedName("YELAHANKA", "POLE", 12); got != "YELAHANKA_POLE_12" {
		t.Errorf("GeneratedName() = %q, want YELAHANKA_POLE_12", got)
	}
}

func TestGeneratedDisplayName(t *testing.T) {
	if got := GeneratedDisplayName("Yelahanka", "Pole", "", 1); got != "Yelahanka Pole #01" {
		t.Errorf("GeneratedDisplayName() = %q", got)
	}
	if got := GeneratedDisplayName("Yelahanka", "Pole", "north gate", 2); got != "Yelahanka Pole #02 (north gate)" {
		t.Errorf("GeneratedDisplayName() with label = %q", got)
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	lat := 13.1007
	loc := &Location{
		OwnerID:      "usr-1",
		Name:         "YELAHANKA_POLE_01",
		DisplayName:  "Yelahanka Pole #01",
		Area:         "Yelahanka",
		SiteType:     "Pole",
		Latitude:     &lat,
		AreaNorm:     "YELAHANKA",
		SiteTypeNorm: "POLE",
		Seq:          1,
	}

	if err := repo.Create(ctx, loc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if loc.ID == "" {
		t.Error("Create() should generate an ID")
	}

	got, err := repo.GetByName(ctx, "YELAHANKA_POLE_01")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.ID != loc.ID {
		t.Errorf("GetByName() ID = %q, want %q", got.ID, loc.ID)
	}
	if got.OwnerID != "usr-1" {
		t.Errorf("OwnerID = %q, want usr-1", got.OwnerID)
	}
	if got.Latitude == nil || *got.Latitude != lat {
		t.Errorf("Latitude = %v, want %v", got.Latitude, lat)
	}
	if got.Longitude != nil {
		t.Errorf("Longitude = %v, want nil", got.Longitude)
	}

	byID, err := repo.GetByID(ctx, loc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Name != loc.Name {
		t.Errorf("GetByID() Name = %q, want %q", byID.Name, loc.Name)
	}
}

func TestRepository_DuplicateName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	first := &Location{Name: "SITE_A", AreaNorm: "A", SiteTypeNorm: "X", Seq: 1}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := &Location{Name: "SITE_A", AreaNorm: "B", SiteTypeNorm: "Y", Seq: 1}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrNameExists) {
		t.Errorf("Create() duplicate name error = %v, want ErrNameExists", err)
	}
}

func TestRepository_SequenceTaken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	first := &Location{Name: "YELAHANKA_POLE_01", AreaNorm: "YELAHANKA", SiteTypeNorm: "POLE", Seq: 1}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Same group and sequence under a different name simulates the
	// racing registration that lost.
	racer := &Location{Name: "YELAHANKA_POLE_01B", AreaNorm: "YELAHANKA", SiteTypeNorm: "POLE", Seq: 1}
	if err := repo.Create(ctx, racer); !errors.Is(err, ErrSequenceTaken) {
		t.Errorf("Create() racing sequence error = %v, want ErrSequenceTaken", err)
	}
}

func TestRepository_Claim(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	loc := &Location{Name: "UNCLAIMED_SITE", AreaNorm: "U", SiteTypeNorm: "S", Seq: 1}
	if err := repo.Create(ctx, loc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Claim(ctx, loc.ID, "usr-1"); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}

	got, err := repo.GetByID(ctx, loc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.OwnerID != "usr-1" {
		t.Errorf("OwnerID after claim = %q, want usr-1", got.OwnerID)
	}

	// Second claim by a different owner must not transfer ownership.
	if err := repo.Claim(ctx, loc.ID, "usr-2"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("Claim() on claimed location error = %v, want ErrAlreadyClaimed", err)
	}

	got, _ = repo.GetByID(ctx, loc.ID)
	if got.OwnerID != "usr-1" {
		t.Errorf("OwnerID after failed claim = %q, want usr-1", got.OwnerID)
	}

	if err := repo.Claim(ctx, "loc-missing", "usr-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Claim() on missing location error = %v, want ErrNotFound", err)
	}
}

func TestRepository_FindOwnedByGroup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	mine := &Location{OwnerID: "usr-1", Name: "YELAHANKA_POLE_01", AreaNorm: "YELAHANKA", SiteTypeNorm: "POLE", Seq: 1}
	theirs := &Location{OwnerID: "usr-2", Name: "YELAHANKA_POLE_02", AreaNorm: "YELAHANKA", SiteTypeNorm: "POLE", Seq: 2}
	for _, l := range []*Location{mine, theirs} {
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("Create(%s) error = %v", l.Name, err)
		}
	}

	got, err := repo.FindOwnedByGroup(ctx, "usr-1", "YELAHANKA", "POLE")
	if err != nil {
		t.Fatalf("FindOwnedByGroup() error = %v", err)
	}
	if got.ID != mine.ID {
		t.Errorf("FindOwnedByGroup() = %q, want %q (owner-scoped match)", got.ID, mine.ID)
	}

	// No match for an owner with no locations in the group.
	if _, err := repo.FindOwnedByGroup(ctx, "usr-3", "YELAHANKA", "POLE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindOwnedByGroup() error = %v, want ErrNotFound", err)
	}
}

func TestRepository_MaxSequence(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	// No locations yet: sequence counting starts at zero.
	seq, err := repo.MaxSequence(ctx, "YELAHANKA", "POLE")
	if err != nil {
		t.Fatalf("MaxSequence() error = %v", err)
	}
	if seq != 0 {
		t.Errorf("MaxSequence() = %d, want 0", seq)
	}

	// Sequence counting spans owners.
	for i, owner := range []string{"usr-1", "usr-2", "usr-3"} {
		loc := &Location{
			OwnerID:      owner,
			Name:         GeneratedName("YELAHANKA", "POLE", i+1),
			AreaNorm:     "YELAHANKA",
			SiteTypeNorm: "POLE",
			Seq:          i + 1,
		}
		if err := repo.Create(ctx, loc); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	seq, err = repo.MaxSequence(ctx, "YELAHANKA", "POLE")
	if err != nil {
		t.Fatalf("MaxSequence() error = %v", err)
	}
	if seq != 3 {
		t.Errorf("MaxSequence() = %d, want 3", seq)
	}

	// Other groups are independent.
	seq, _ = repo.MaxSequence(ctx, "YELAHANKA", "BOREWELL")
	if seq != 0 {
		t.Errorf("MaxSequence() for other group = %d, want 0", seq)
	}
}

func TestRepository_ListByOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	locs := []*Location{
		{OwnerID: "usr-1", Name: "B_SITE", AreaNorm: "B", SiteTypeNorm: "S", Seq: 1},
		{OwnerID: "usr-1", Name: "A_SITE", AreaNorm: "A", SiteTypeNorm: "S", Seq: 1},
		{OwnerID: "usr-2", Name: "C_SITE", AreaNorm: "C", SiteTypeNorm: "S", Seq: 1},
	}
	for _, l := range locs {
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("Create(%s) error = %v", l.Name, err)
		}
	}

	mine, err := repo.ListByOwner(ctx, "usr-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("ListByOwner() returned %d locations, want 2", len(mine))
	}
	if mine[0].Name != "A_SITE" || mine[1].Name != "B_SITE" {
		t.Errorf("ListByOwner() order = %q, %q, want A_SITE, B_SITE", mine[0].Name, mine[1].Name)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() returned %d locations, want 3", len(all))
	}
}
