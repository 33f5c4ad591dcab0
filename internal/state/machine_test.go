package state

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMachine_StartsDisconnected(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateDisconnected, m.MustState())
	assert.False(t, m.IsConnected())
}

func TestMachine_PairingFlow(t *testing.T) {
	m := NewMachine()
	ctx := context.Background()

	require.NoError(t, m.Fire(ctx, TriggerQRReceived))
	assert.Equal(t, StateAwaitingScan, m.MustState())

	require.NoError(t, m.Fire(ctx, TriggerReady))
	assert.Equal(t, StateConnected, m.MustState())
	assert.True(t, m.IsConnected())
}

func TestMachine_ExistingSessionSkipsPairing(t *testing.T) {
	m := NewMachine()

	require.NoError(t, m.Fire(context.Background(), TriggerReady))
	assert.Equal(t, StateConnected, m.MustState())
}

func TestMachine_DisconnectFromConnected(t *testing.T) {
	m := NewMachine()
	ctx := context.Background()

	require.NoError(t, m.Fire(ctx, TriggerReady))
	require.NoError(t, m.Fire(ctx, TriggerDisconnected))
	assert.Equal(t, StateDisconnected, m.MustState())
}

func TestMachine_AuthFailureWhileAwaitingScan(t *testing.T) {
	m := NewMachine()
	ctx := context.Background()

	require.NoError(t, m.Fire(ctx, TriggerQRReceived))
	require.NoError(t, m.Fire(ctx, TriggerAuthFailure))
	assert.Equal(t, StateDisconnected, m.MustState())
}

func TestMachine_QRRotationKeepsState(t *testing.T) {
	m := NewMachine()
	ctx := context.Background()

	require.NoError(t, m.Fire(ctx, TriggerQRReceived))
	// Code rotation fires the same trigger again; the state must not change.
	require.NoError(t, m.Fire(ctx, TriggerQRReceived))
	assert.Equal(t, StateAwaitingScan, m.MustState())
}

func TestMachine_RepairAfterSessionDrop(t *testing.T) {
	m := NewMachine()
	ctx := context.Background()

	require.NoError(t, m.Fire(ctx, TriggerReady))
	require.NoError(t, m.Fire(ctx, TriggerQRReceived))
	assert.Equal(t, StateAwaitingScan, m.MustState())
}

func TestMachine_DisconnectWhileDisconnectedIsNoop(t *testing.T) {
	m := NewMachine()

	require.NoError(t, m.Fire(context.Background(), TriggerDisconnected))
	assert.Equal(t, StateDisconnected, m.MustState())
}

func TestMachine_TransitionCallbacks(t *testing.T) {
	m := NewMachine()
	ctx := context.Background()

	var mu sync.Mutex
	var transitions []struct {
		from, to State
		trigger  Trigger
	}

	m.OnTransition(func(_ context.Context, from, to State, trigger Trigger) {
		mu.Lock()
		transitions = append(transitions, struct {
			from, to State
			trigger  Trigger
		}{from, to, trigger})
		mu.Unlock()
	})

	require.NoError(t, m.Fire(ctx, TriggerQRReceived))
	require.NoError(t, m.Fire(ctx, TriggerReady))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, transitions, 2)
	assert.Equal(t, StateDisconnected, transitions[0].from)
	assert.Equal(t, StateAwaitingScan, transitions[0].to)
	assert.Equal(t, TriggerQRReceived, transitions[0].trigger)
	assert.Equal(t, StateConnected, transitions[1].to)
	assert.Equal(t, TriggerReady, transitions[1].trigger)
}
