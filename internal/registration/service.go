package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/envcloud/envcloud-core/internal/device"
	"github.com/envcloud/envcloud-core/internal/location"
)

// Sentinel errors for registration operations.
var (
	// ErrValidation is returned for malformed or missing required input.
	ErrValidation = errors.New("invalid registration input")

	// ErrConflict is returned when the device belongs to another owner.
	ErrConflict = errors.New("device already registered to another owner")

	// ErrSequenceExhausted is returned when sequence reservation keeps
	// colliding past the retry budget.
	ErrSequenceExhausted = errors.New("could not reserve location sequence")
)

// maxSeqRetries bounds the reservation retry loop. Each retry re-reads
// the current maximum, so consecutive collisions only happen while
// other registrations for the same group keep winning.
const maxSeqRetries = 5

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// LocationInput describes the grouping path: the device asks to join
// (or start) the sequence for an area + site type.
type LocationInput struct {
	Area     string `json:"area"`
	SiteType string `json:"site_type"`
	Label    string `json:"label,omitempty"`
}

// Input is a registration request.
//
// Exactly one of LocationName (explicit path) or Location (grouping
// path) must be supplied.
type Input struct {
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`

	LocationName string `json:"location_id,omitempty"`

	Location *LocationInput `json:"location_input,omitempty"`
}

// Result describes the location a device ended up bound to.
type Result struct {
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name"`
	DisplayName  string `json:"display_name"`
}

// Service runs the registration protocol over the location and device
// repositories.
type Service struct {
	locations location.Repository
	devices   device.Repository
	logger    Logger
}

// NewService creates a registration service.
func NewService(locations location.Repository, devices device.Repository) *Service {
	return &Service{
		locations: locations,
		devices:   devices,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Register resolves a location for the device and binds the device to
// it. ownerID is the authenticated caller.
func (s *Service) Register(ctx context.Context, ownerID string, in Input) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	// A device owned by someone else can never be re-registered.
	existing, err := s.devices.GetByID(ctx, in.DeviceID)
	if err != nil && !errors.Is(err, device.ErrNotFound) {
		return nil, fmt.Errorf("looking up device %s: %w", in.DeviceID, err)
	}
	if existing != nil && existing.OwnerID != "" && existing.OwnerID != ownerID {
		return nil, ErrConflict
	}

	var loc *location.Location
	if in.LocationName != "" {
		loc, err = s.resolveExplicit(ctx, ownerID, in.LocationName)
	} else {
		loc, err = s.resolveGrouped(ctx, ownerID, *in.Location)
	}
	if err != nil {
		return nil, err
	}

	dev := &device.Device{
		DeviceID:   in.DeviceID,
		LocationID: loc.ID,
		OwnerID:    ownerID,
		Type:       in.DeviceType,
	}
	if err := s.devices.Upsert(ctx, dev); err != nil {
		return nil, err
	}

	s.logger.Info("device registered",
		"device_id", in.DeviceID,
		"location", loc.Name,
		"owner_id", ownerID,
	)

	return &Result{
		LocationID:   loc.ID,
		LocationName: loc.Name,
		DisplayName:  loc.DisplayName,
	}, nil
}

// Unlink clears the device's owner. Location binding and measurement
// history are kept.
func (s *Service) Unlink(ctx context.Context, ownerID, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrValidation)
	}
	return s.devices.Unlink(ctx, ownerID, deviceID)
}

func validate(in Input) error {
	if in.DeviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrValidation)
	}
	hasExplicit := in.LocationName != ""
	hasGroup := in.Location != nil && in.Location.Area != "" && in.Location.SiteType != ""
	if !hasExplicit && !hasGroup {
		return fmt.Errorf("%w: location_id or location_input is required", ErrValidation)
	}
	if hasExplicit && hasGroup {
		return fmt.Errorf("%w: location_id and location_input are mutually exclusive", ErrValidation)
	}
	return nil
}

// resolveExplicit handles the explicit path: reuse the named location,
// claiming it when unclaimed, or create it owned by the caller.
//
// A location owned by someone else is reused as-is: the device binds
// against it without reassigning ownership. This asymmetry with the
// grouping path is deliberate; legacy shared locations keep working.
func (s *Service) resolveExplicit(ctx context.Context, ownerID, name string) (*location.Location, error) {
	loc, err := s.locations.GetByName(ctx, name)
	if errors.Is(err, location.ErrNotFound) {
		loc = &location.Location{
			OwnerID:     ownerID,
			Name:        name,
			DisplayName: name,
		}
		if createErr := s.locations.Create(ctx, loc); createErr != nil {
			if errors.Is(createErr, location.ErrNameExists) {
				// Lost a race with another registration; reuse theirs.
				return s.locations.GetByName(ctx, name)
			}
			return nil, createErr
		}
		return loc, nil
	}
	if err != nil {
		return nil, err
	}

	if !loc.Claimed() {
		if claimErr := s.locations.Claim(ctx, loc.ID, ownerID); claimErr != nil &&
			!errors.Is(claimErr, location.ErrAlreadyClaimed) {
			return nil, claimErr
		}
		return s.locations.GetByID(ctx, loc.ID)
	}

	return loc, nil
}

// resolveGrouped handles the grouping path: reuse the caller's own
// location with matching normalized area + site type, or mint a new
// generated name with an atomically reserved sequence number.
func (s *Service) resolveGrouped(ctx context.Context, ownerID string, in LocationInput) (*location.Location, error) {
	areaNorm := location.Normalize(in.Area)
	siteTypeNorm := location.Normalize(in.SiteType)

	loc, err := s.locations.FindOwnedByGroup(ctx, ownerID, areaNorm, siteTypeNorm)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, location.ErrNotFound) {
		return nil, err
	}

	// Reserve the next sequence number. The unique index makes losing
	// racers fail their insert; they re-read the maximum and try again.
	for attempt := 0; attempt < maxSeqRetries; attempt++ {
		maxSeq, err := s.locations.MaxSequence(ctx, areaNorm, siteTypeNorm)
		if err != nil {
			return nil, err
		}
		seq := maxSeq + 1

		loc := &location.Location{
			OwnerID:      ownerID,
			Name:         location.GeneratedName(areaNorm, siteTypeNorm, seq),
			DisplayName:  location.GeneratedDisplayName(in.Area, in.SiteType, in.Label, seq),
			Area:         in.Area,
			SiteType:     in.SiteType,
			Label:        in.Label,
			AreaNorm:     areaNorm,
			SiteTypeNorm: siteTypeNorm,
			Seq:          seq,
		}

		err = s.locations.Create(ctx, loc)
		if err == nil {
			return loc, nil
		}
		// A collision on either the sequence index or the generated
		// name means a concurrent registration took this slot.
		if errors.Is(err, location.ErrSequenceTaken) || errors.Is(err, location.ErrNameExists) {
			s.logger.Debug("sequence collision, retrying",
				"group", areaNorm+"_"+siteTypeNorm,
				"seq", seq,
			)
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: %s_%s", ErrSequenceExhausted, areaNorm, siteTypeNorm)
}
