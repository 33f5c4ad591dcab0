package state

// Trigger represents an event that causes a state transition.
type Trigger string

const (
	// TriggerQRReceived fires when the underlying client produces a pairing code.
	TriggerQRReceived Trigger = "qr_received"

	// TriggerReady fires when the session is authenticated and usable.
	TriggerReady Trigger = "ready"

	// TriggerAuthFailure fires when authentication is rejected.
	TriggerAuthFailure Trigger = "auth_failure"

	// TriggerDisconnected fires when the connection is lost for any reason.
	TriggerDisconnected Trigger = "disconnected"
)
