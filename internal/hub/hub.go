package hub

import (
	"encoding/json"
	"sync"
)

// Subscriber receives broadcast payloads. TrySend must not block: a
// slow or gone subscriber drops the message rather than stalling the
// publisher.
type Subscriber interface {
	TrySend(data []byte)
}

// Logger defines the logging interface used by the Hub.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Hub routes published payloads to the subscribers of a topic.
//
// The hub lock guards the topic map only; each topic carries its own
// lock so a busy location never contends with the others. Subscriber
// sets are snapshotted before sending, keeping delivery outside any
// lock.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]*topic
	logger Logger
}

type topic struct {
	mu   sync.RWMutex
	subs map[Subscriber]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		topics: make(map[string]*topic),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the hub.
func (h *Hub) SetLogger(logger Logger) {
	h.logger = logger
}

// Subscribe adds sub to the topic, creating the topic on first use.
// Subscribing twice is a no-op.
func (h *Hub) Subscribe(name string, sub Subscriber) {
	// Held across the insert so a concurrent prune cannot orphan the
	// new subscriber.
	h.mu.Lock()
	t, ok := h.topics[name]
	if !ok {
		t = &topic{subs: make(map[Subscriber]struct{})}
		h.topics[name] = t
	}

	t.mu.Lock()
	t.subs[sub] = struct{}{}
	count := len(t.subs)
	t.mu.Unlock()
	h.mu.Unlock()

	h.logger.Debug("hub subscribe", "topic", name, "subscribers", count)
}

// Unsubscribe removes sub from the topic. The topic is pruned once its
// last subscriber leaves. Unknown topics and absent subscribers are
// no-ops.
func (h *Hub) Unsubscribe(name string, sub Subscriber) {
	h.mu.Lock()
	t, ok := h.topics[name]
	if !ok {
		h.mu.Unlock()
		return
	}

	t.mu.Lock()
	delete(t.subs, sub)
	empty := len(t.subs) == 0
	t.mu.Unlock()

	if empty {
		delete(h.topics, name)
	}
	h.mu.Unlock()

	h.logger.Debug("hub unsubscribe", "topic", name, "pruned", empty)
}

// Publish marshals payload once and hands it to every subscriber of
// the topic. Failed or skipped deliveries do not affect membership.
func (h *Hub) Publish(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("hub marshal failed", "topic", name, "error", err)
		return
	}
	h.PublishRaw(name, data)
}

// PublishRaw delivers pre-marshalled bytes to every subscriber of the
// topic.
func (h *Hub) PublishRaw(name string, data []byte) {
	h.mu.RLock()
	t, ok := h.topics[name]
	h.mu.RUnlock()
	if !ok {
		return
	}

	t.mu.RLock()
	subs := make([]Subscriber, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	t.mu.RUnlock()

	for _, sub := range subs {
		sub.TrySend(data)
	}

	if len(subs) > 0 {
		h.logger.Debug("hub publish", "topic", name, "recipients", len(subs))
	}
}

// SubscriberCount returns the number of subscribers on a topic.
func (h *Hub) SubscriberCount(name string) int {
	h.mu.RLock()
	t, ok := h.topics[name]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// TopicCount returns the number of live topics.
func (h *Hub) TopicCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics)
}
