package wa

import (
	"time"
)

// EventType represents the type of client event.
type EventType int

const (
	EventQR EventType = iota
	EventReady
	EventAuthFailure
	EventDisconnected
	EventMessage
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventQR:
		return "qr"
	case EventReady:
		return "ready"
	case EventAuthFailure:
		return "auth_failure"
	case EventDisconnected:
		return "disconnected"
	case EventMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event represents a client lifecycle or message event.
type Event struct {
	Type      EventType
	Payload   interface{}
	Timestamp time.Time
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(t EventType, payload interface{}) Event {
	return Event{
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// QRPayload carries the raw pairing code for EventQR.
type QRPayload struct {
	Code string
}

// ReadyPayload carries the account identity for EventReady.
type ReadyPayload struct {
	Identity Identity
}

// AuthFailurePayload carries the reason for EventAuthFailure.
type AuthFailurePayload struct {
	Reason string
}

// DisconnectedPayload carries the reason for EventDisconnected.
type DisconnectedPayload struct {
	Reason string
}

// MessagePayload carries the message handle for EventMessage. It covers
// both inbound messages and messages sent from this or another device.
type MessagePayload struct {
	Message Message
}
