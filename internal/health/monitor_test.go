package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextshop/wabridge/internal/state"
)

func TestMonitor_InitialStatus(t *testing.T) {
	m := NewMonitor(state.NewMachine())

	st := m.GetStatus()
	assert.Equal(t, string(state.StateDisconnected), st.State)
	assert.False(t, st.Connected)
	assert.Zero(t, st.MessagesReceived)
	assert.Zero(t, st.MessagesSent)
	assert.True(t, st.LastMessage.IsZero())
}

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor(state.NewMachine())

	m.RecordMessageReceived()
	m.RecordMessageReceived()
	m.RecordMessageSent()

	st := m.GetStatus()
	assert.Equal(t, int64(2), st.MessagesReceived)
	assert.Equal(t, int64(1), st.MessagesSent)
	assert.False(t, st.LastMessage.IsZero())
}

func TestMonitor_ReflectsConnectionState(t *testing.T) {
	sm := state.NewMachine()
	m := NewMonitor(sm)

	require.NoError(t, sm.Fire(context.Background(), state.TriggerReady))

	st := m.GetStatus()
	assert.True(t, st.Connected)
	assert.Equal(t, string(state.StateConnected), st.State)
}
