// Package registration implements the device registration protocol.
//
// A device registers once with either an explicit location name or an
// area + site type pair. The explicit path claims unclaimed locations
// and reuses foreign-owned ones read-only; the grouping path collapses
// a caller's devices with matching area + site type onto one location,
// minting {AREA}_{SITE_TYPE}_{NN} names with a globally counted
// sequence when no match exists. Re-registration by the owner moves
// the device; registration by anyone else is a conflict.
package registration
