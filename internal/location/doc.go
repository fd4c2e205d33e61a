// Package location owns the identity and grouping of physical
// monitoring sites.
//
// A Location's name is a globally unique slug (YELAHANKA_POLE_01),
// either supplied explicitly at registration or minted by the grouping
// heuristic from area + site type. Names are immutable once assigned
// and locations are never deleted, preserving measurement history.
//
// Generated names carry a sequence number reserved through a unique
// index on (area_norm, site_type_norm, seq): two registrations
// racing on the same brand-new area+type pair collide at insert time
// and one of them retries with the next sequence, so duplicate numbers
// cannot be minted.
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use from multiple goroutines
// (SQLite WAL mode + single pooled writer).
package location
