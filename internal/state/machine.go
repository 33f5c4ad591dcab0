package state

import (
	"context"
	"sync"

	"github.com/qmuntal/stateless"
)

// TransitionCallback is called when a state transition occurs.
type TransitionCallback func(ctx context.Context, from, to State, trigger Trigger)

// Machine wraps the stateless state machine with session-specific behavior.
type Machine struct {
	sm          *stateless.StateMachine
	callbacks   []TransitionCallback
	callbacksMu sync.RWMutex
}

// NewMachine creates a new state machine starting in Disconnected state.
func NewMachine() *Machine {
	m := &Machine{
		callbacks: make([]TransitionCallback, 0),
	}

	sm := stateless.NewStateMachine(StateDisconnected)

	sm.Configure(StateDisconnected).
		Permit(TriggerQRReceived, StateAwaitingScan).
		Permit(TriggerReady, StateConnected). // existing session, no pairing needed
		Ignore(TriggerDisconnected).
		Ignore(TriggerAuthFailure)

	sm.Configure(StateAwaitingScan).
		Permit(TriggerReady, StateConnected).
		Permit(TriggerDisconnected, StateDisconnected).
		Permit(TriggerAuthFailure, StateDisconnected).
		Ignore(TriggerQRReceived) // code rotation keeps the state, image is replaced

	sm.Configure(StateConnected).
		Permit(TriggerDisconnected, StateDisconnected).
		Permit(TriggerAuthFailure, StateDisconnected).
		Permit(TriggerQRReceived, StateAwaitingScan). // session dropped, re-pair
		Ignore(TriggerReady)

	sm.OnTransitioned(func(ctx context.Context, t stateless.Transition) {
		m.callbacksMu.RLock()
		callbacks := make([]TransitionCallback, len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.callbacksMu.RUnlock()

		from := t.Source.(State)
		to := t.Destination.(State)
		trigger := t.Trigger.(Trigger)

		for _, cb := range callbacks {
			cb(ctx, from, to, trigger)
		}
	})

	m.sm = sm
	return m
}

// State returns the current state.
func (m *Machine) State(ctx context.Context) (State, error) {
	state, err := m.sm.State(ctx)
	if err != nil {
		return "", err
	}
	return state.(State), nil
}

// Fire triggers a state transition.
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	return m.sm.FireCtx(ctx, trigger)
}

// OnTransition registers a callback to be called on state transitions.
func (m *Machine) OnTransition(cb TransitionCallback) {
	m.callbacksMu.Lock()
	defer m.callbacksMu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// MustState returns the current state, panicking on error.
func (m *Machine) MustState() State {
	state, err := m.State(context.Background())
	if err != nil {
		panic(err)
	}
	return state
}

// IsConnected returns true if the session is authenticated and usable.
func (m *Machine) IsConnected() bool {
	return m.MustState() == StateConnected
}
