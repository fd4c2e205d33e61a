package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/envcloud/envcloud-core/internal/device"
	"github.com/envcloud/envcloud-core/internal/location"
	"github.com/envcloud/envcloud-core/internal/telemetry"
)

// Sentinel errors for ingest operations.
var (
	// ErrValidation is returned for payloads missing a device ID or
	// carrying no readings.
	ErrValidation = errors.New("invalid ingest payload")

	// ErrUnregisteredDevice is returned when the device has never been
	// registered. Callers must register first.
	ErrUnregisteredDevice = errors.New("device not registered")

	// ErrIntegrity is returned when a registered device points at a
	// location that no longer exists.
	ErrIntegrity = errors.New("device mapped to invalid location")
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher fans a payload out to live subscribers of a topic.
// Satisfied by hub.Hub.
type Publisher interface {
	Publish(topic string, payload any)
}

// Mirror receives an async copy of every accepted reading. Satisfied
// by influxdb.Client.
type Mirror interface {
	WriteMeasurement(locationID, deviceID, metric string, value float64, ts time.Time)
}

// Payload is one telemetry batch from a device. Timestamp is optional;
// malformed or absent timestamps resolve to server time.
type Payload struct {
	DeviceID  string             `json:"device_id"`
	Type      string             `json:"type,omitempty"`
	Timestamp string             `json:"timestamp,omitempty"`
	Data      map[string]float64 `json:"data"`
}

// Result reports what an accepted batch produced.
type Result struct {
	Rows             int    `json:"rows"`
	LocationID       string `json:"-"`
	ResolvedLocation string `json:"resolved_location"`
}

// Service is the ingest pipeline.
type Service struct {
	devices   device.Repository
	locations location.Repository
	store     telemetry.Store
	publisher Publisher
	mirror    Mirror
	logger    Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewService creates an ingest service. publisher and mirror may be
// nil; the corresponding step is skipped.
func NewService(devices device.Repository, locations location.Repository, store telemetry.Store) *Service {
	return &Service{
		devices:   devices,
		locations: locations,
		store:     store,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetPublisher wires the live broadcast fan-out.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// SetMirror wires the time-series mirror.
func (s *Service) SetMirror(m Mirror) {
	s.mirror = m
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Ingest validates the batch against the device registry, appends one
// row per reading and broadcasts the batch plus a heartbeat to the
// location's live topic.
//
// Registration is the gate: unregistered devices are rejected so no
// measurement ever exists without a resolvable location.
func (s *Service) Ingest(ctx context.Context, p Payload) (*Result, error) {
	if p.DeviceID == "" {
		return nil, ErrValidation
	}

	dev, err := s.devices.GetByID(ctx, p.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnregisteredDevice, p.DeviceID)
		}
		return nil, fmt.Errorf("looking up device %s: %w", p.DeviceID, err)
	}

	loc, err := s.locations.GetByID(ctx, dev.LocationID)
	if err != nil {
		if errors.Is(err, location.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrIntegrity, p.DeviceID, dev.LocationID)
		}
		return nil, fmt.Errorf("looking up location %s: %w", dev.LocationID, err)
	}

	ts := telemetry.ResolveTimestamp(p.Timestamp, s.now())

	rows := make([]telemetry.Measurement, 0, len(p.Data))
	for metric, value := range p.Data {
		rows = append(rows, telemetry.Measurement{
			LocationID: loc.ID,
			DeviceID:   p.DeviceID,
			Type:       metric,
			Value:      value,
			Timestamp:  ts,
		})
	}

	if err := s.store.Append(ctx, rows); err != nil {
		return nil, fmt.Errorf("appending measurements: %w", err)
	}

	s.broadcast(p, loc.Name, ts)
	s.mirrorRows(loc.ID, rows)

	s.logger.Debug("ingest accepted",
		"device_id", p.DeviceID,
		"location", loc.Name,
		"rows", len(rows),
	)

	return &Result{
		Rows:             len(rows),
		LocationID:       loc.ID,
		ResolvedLocation: loc.Name,
	}, nil
}

// broadcast publishes the batch and then an explicit heartbeat to the
// location topic. Clients key liveness off the heartbeat even when
// they ignore the data message.
func (s *Service) broadcast(p Payload, locationName string, ts time.Time) {
	if s.publisher == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("broadcast panic", "location", locationName, "panic", r)
		}
	}()

	timestamp := p.Timestamp
	if timestamp == "" {
		timestamp = ts.UTC().Format(time.RFC3339)
	}

	s.publisher.Publish(locationName, map[string]any{
		"device_id":   p.DeviceID,
		"type":        p.Type,
		"timestamp":   timestamp,
		"data":        p.Data,
		"location_id": locationName,
	})

	s.publisher.Publish(locationName, map[string]any{
		"type":        "heartbeat",
		"device_id":   p.DeviceID,
		"location_id": locationName,
		"timestamp":   s.now().UTC().Format(time.RFC3339),
		"status":      "online",
	})
}

func (s *Service) mirrorRows(locationID string, rows []telemetry.Measurement) {
	if s.mirror == nil {
		return
	}
	for _, r := range rows {
		s.mirror.WriteMeasurement(locationID, r.DeviceID, r.Type, r.Value, r.Timestamp)
	}
}
