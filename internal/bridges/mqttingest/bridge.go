package mqttingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/envcloud/envcloud-core/internal/ingest"
	"github.com/envcloud/envcloud-core/internal/infrastructure/mqtt"
)

// ingestTimeout bounds a single batch's trip through the pipeline.
const ingestTimeout = 10 * time.Second

// subscribeQoS is at-least-once; the append path tolerates duplicate
// batches because rows are plain inserts keyed by device and timestamp.
const subscribeQoS = 1

// MQTTClient is the interface for MQTT operations. Satisfied by
// mqtt.Client; narrowed so tests can fake the broker.
type MQTTClient interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Ingestor runs one telemetry batch through the pipeline. Satisfied by
// ingest.Service.
type Ingestor interface {
	Ingest(ctx context.Context, p ingest.Payload) (*ingest.Result, error)
}

// Logger defines the logging interface used by the Bridge.
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

// Bridge subscribes to the ingest topic tree and forwards batches to
// the ingest service.
type Bridge struct {
	client  MQTTClient
	service Ingestor
	logger  Logger
}

// New creates a bridge. Call Start to begin consuming.
func New(client MQTTClient, service Ingestor) *Bridge {
	return &Bridge{
		client:  client,
		service: service,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Start subscribes to envcloud/ingest/+. The subscription survives
// broker reconnects; there is nothing to tear down beyond the MQTT
// client itself.
func (b *Bridge) Start() error {
	topic := mqtt.Topics{}.AllIngest()
	if err := b.client.Subscribe(topic, subscribeQoS, b.handleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	b.logger.Info("mqtt ingest bridge started", "topic", topic)
	return nil
}

// handleMessage parses one MQTT message and runs it through the ingest
// pipeline. Errors are logged, not returned upstream: a bad batch
// from one device must not disturb the subscription.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	var p ingest.Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		b.logger.Warn("discarding malformed ingest message", "topic", topic, "error", err)
		return nil
	}

	// The topic segment is authoritative when the body omits device_id.
	if p.DeviceID == "" {
		p.DeviceID = deviceIDFromTopic(topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	res, err := b.service.Ingest(ctx, p)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrValidation),
			errors.Is(err, ingest.ErrUnregisteredDevice):
			b.logger.Warn("rejected ingest message", "topic", topic, "error", err)
		default:
			b.logger.Error("ingest failed", "topic", topic, "error", err)
		}
		return nil
	}

	b.logger.Debug("mqtt batch ingested",
		"device_id", p.DeviceID,
		"location", res.ResolvedLocation,
		"rows", res.Rows,
	)
	return nil
}

// deviceIDFromTopic extracts the device segment from
// envcloud/ingest/{device_id}.
func deviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
