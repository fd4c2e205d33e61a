package location

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Location represents a physical monitoring site.
//
// OwnerID is empty while the location is unclaimed; the first
// registration against it claims it. Name is immutable once assigned.
type Location struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"owner_id,omitempty"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Area        string   `json:"area,omitempty"`
	SiteType    string   `json:"site_type,omitempty"`
	Label       string   `json:"label,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`

	// AreaNorm, SiteTypeNorm, and Seq back the grouping sequence for
	// generated names. Zero Seq means the name was supplied explicitly.
	AreaNorm     string `json:"-"`
	SiteTypeNorm string `json:"-"`
	Seq          int    `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Claimed reports whether the location has an owner.
func (l *Location) Claimed() bool {
	return l.OwnerID != ""
}

// Normalize uppercases a grouping field and strips all whitespace.
// Display values keep their original casing; normalization is for
// comparison and generated names only.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// GeneratedName builds the globally unique slug for a grouped location:
// {AREA}_{SITE_TYPE}_{NN} with a two-digit, 1-based sequence.
func GeneratedName(areaNorm, siteTypeNorm string, seq int) string {
	return fmt.Sprintf("%s_%s_%02d", areaNorm, siteTypeNorm, seq)
}

// GeneratedDisplayName builds the human label for a grouped location:
// "{area} {site_type} #{NN}", suffixed with " ({label})" when a label
// was supplied.
func GeneratedDisplayName(area, siteType, label string, seq int) string {
	name := fmt.Sprintf("%s %s #%02d", area, siteType, seq)
	if label != "" {
		name += fmt.Sprintf(" (%s)", label)
	}
	return name
}
