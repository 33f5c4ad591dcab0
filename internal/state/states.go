// Package state provides the finite state machine for the WhatsApp session lifecycle.
package state

// State represents a session state in the bridge lifecycle.
type State string

const (
	// StateDisconnected means the bridge has no usable WhatsApp session.
	StateDisconnected State = "disconnected"

	// StateAwaitingScan means a pairing code is available and waiting to be scanned.
	StateAwaitingScan State = "awaiting_scan"

	// StateConnected means the session is authenticated and operational.
	StateConnected State = "connected"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsOperational returns true if the bridge can perform WhatsApp operations.
func (s State) IsOperational() bool {
	return s == StateConnected
}
