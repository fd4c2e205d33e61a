package location

import "errors"

var (
	// ErrNotFound is returned when a location ID or name does not exist.
	ErrNotFound = errors.New("location not found")

	// ErrNameExists is returned when creating a location whose name is taken.
	ErrNameExists = errors.New("location name already exists")

	// ErrSequenceTaken is returned when the reserved sequence number for a
	// generated name was claimed by a concurrent registration. Callers
	// retry with a fresh sequence.
	ErrSequenceTaken = errors.New("location sequence already reserved")

	// ErrAlreadyClaimed is returned when claiming a location that has an owner.
	ErrAlreadyClaimed = errors.New("location already claimed")
)
