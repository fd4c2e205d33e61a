package mqttingest

import (
	"context"
	"errors"
	"testing"

	"github.com/envcloud/envcloud-core/internal/ingest"
	"github.com/envcloud/envcloud-core/internal/infrastructure/mqtt"
)

// fakeMQTT captures the subscription so tests can inject messages.
type fakeMQTT struct {
	topic   string
	qos     byte
	handler mqtt.MessageHandler
	err     error
}

func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	f.topic = topic
	f.qos = qos
	f.handler = handler
	return nil
}

func (f *fakeMQTT) IsConnected() bool { return true }

// fakeIngestor records payloads and returns a canned result or error.
type fakeIngestor struct {
	payloads []ingest.Payload
	err      error
}

func (f *fakeIngestor) Ingest(_ context.Context, p ingest.Payload) (*ingest.Result, error) {
	f.payloads = append(f.payloads, p)
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.Result{Rows: len(p.Data), ResolvedLocation: "YELAHANKA_POLE_01"}, nil
}

func TestBridge_StartSubscribes(t *testing.T) {
	client := &fakeMQTT{}
	bridge := New(client, &fakeIngestor{})

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if client.topic != "envcloud/ingest/+" {
		t.Errorf("subscribed to %q, want envcloud/ingest/+", client.topic)
	}
	if client.qos != 1 {
		t.Errorf("qos = %d, want 1", client.qos)
	}
}

func TestBridge_StartSubscribeError(t *testing.T) {
	client := &fakeMQTT{err: errors.New("broker down")}
	bridge := New(client, &fakeIngestor{})

	if err := bridge.Start(); err == nil {
		t.Fatal("Start() should surface the subscribe error")
	}
}

func TestBridge_ForwardsBatch(t *testing.T) {
	client := &fakeMQTT{}
	svc := &fakeIngestor{}
	bridge := New(client, svc)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := []byte(`{"device_id":"D1","type":"aqi","data":{"pm25":42,"co":1.1}}`)
	if err := client.handler("envcloud/ingest/D1", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if len(svc.payloads) != 1 {
		t.Fatalf("ingested %d payloads, want 1", len(svc.payloads))
	}
	got := svc.payloads[0]
	if got.DeviceID != "D1" || got.Data["pm25"] != 42 {
		t.Errorf("forwarded payload = %+v", got)
	}
}

func TestBridge_DeviceIDFromTopic(t *testing.T) {
	client := &fakeMQTT{}
	svc := &fakeIngestor{}
	bridge := New(client, svc)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Body omits device_id; the topic segment fills it in.
	payload := []byte(`{"data":{"ph":7.2}}`)
	if err := client.handler("envcloud/ingest/W42", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if len(svc.payloads) != 1 || svc.payloads[0].DeviceID != "W42" {
		t.Errorf("payloads = %+v, want device W42", svc.payloads)
	}
}

func TestBridge_MalformedAndRejectedMessagesDoNotError(t *testing.T) {
	client := &fakeMQTT{}
	svc := &fakeIngestor{err: ingest.ErrUnregisteredDevice}
	bridge := New(client, svc)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := client.handler("envcloud/ingest/D1", []byte("{not json")); err != nil {
		t.Errorf("malformed message should be swallowed, got %v", err)
	}
	if len(svc.payloads) != 0 {
		t.Error("malformed message should not reach the pipeline")
	}

	if err := client.handler("envcloud/ingest/D1", []byte(`{"device_id":"D1","data":{"pm25":1}}`)); err != nil {
		t.Errorf("rejected batch should be swallowed, got %v", err)
	}
}
