// Package events normalizes provider webhook notifications into a closed set
// of event types and reconciles them against the envelope store.
package events

import (
	"encoding/json"

	"esign-gateway/internal/common/errors"
)

// EventType is the normalized kind of a Connect notification.
type EventType string

const (
	EventRecipientSent      EventType = "recipient-sent"
	EventEnvelopeSent       EventType = "envelope-sent"
	EventRecipientDelivered EventType = "recipient-delivered"
	EventRecipientCompleted EventType = "recipient-completed"
	EventRecipientDeclined  EventType = "recipient-declined"
	EventEnvelopeCompleted  EventType = "envelope-completed"

	// EventUnrecognized covers every provider event type outside the closed
	// set above. Such events are accepted and produce a no-op so new
	// provider event types never crash the reconciler.
	EventUnrecognized EventType = "unrecognized"
)

// Event is a normalized notification: the event type, the envelope it refers
// to, and the recipient token for per-recipient events.
type Event struct {
	Type        EventType
	EnvelopeID  string
	RecipientID string // empty for envelope-level events
	Raw         string // provider event string, kept for logging unrecognized types
}

// notification is the provider's wire format.
type notification struct {
	Event string `json:"event"`
	Data  struct {
		EnvelopeID  string `json:"envelopeId"`
		RecipientID string `json:"recipientId"`
	} `json:"data"`
}

// knownTypes is the closed set of event types the reconciler acts on.
var knownTypes = map[string]EventType{
	"recipient-sent":      EventRecipientSent,
	"envelope-sent":       EventEnvelopeSent,
	"recipient-delivered": EventRecipientDelivered,
	"recipient-completed": EventRecipientCompleted,
	"recipient-declined":  EventRecipientDeclined,
	"envelope-completed":  EventEnvelopeCompleted,
}

// Normalize parses a raw notification body into an Event. The body has
// already passed signature verification, so a parse failure means the sender
// produced a malformed payload, which is a validation error distinct from an
// authentication failure.
func Normalize(raw []byte) (Event, error) {
	var n notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return Event{}, errors.ValidationError("malformed notification payload")
	}

	if n.Data.EnvelopeID == "" {
		return Event{}, errors.ValidationError("notification is missing an envelope id")
	}

	eventType, ok := knownTypes[n.Event]
	if !ok {
		eventType = EventUnrecognized
	}

	return Event{
		Type:        eventType,
		EnvelopeID:  n.Data.EnvelopeID,
		RecipientID: n.Data.RecipientID,
		Raw:         n.Event,
	}, nil
}
