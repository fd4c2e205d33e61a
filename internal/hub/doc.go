// Package hub provides an in-process publish/subscribe fan-out keyed by
// location. Each location forms one topic; subscribers receive every
// payload published to their topic as marshalled JSON.
//
// Delivery is best effort. A subscriber that cannot accept a message is
// skipped, never removed: only an explicit Unsubscribe (or the
// subscriber's own disconnect path calling it) takes a subscriber out
// of a topic. Publishing to a topic with no subscribers is a no-op.
package hub
