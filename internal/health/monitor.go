// Package health tracks bridge uptime and message counters.
package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nextshop/wabridge/internal/state"
)

// Status is the health snapshot exposed on the /health endpoint.
type Status struct {
	State            string    `json:"state"`
	Connected        bool      `json:"connected"`
	UptimeSeconds    int64     `json:"uptime_seconds"`
	LastMessage      time.Time `json:"last_message"`
	MessagesReceived int64     `json:"messages_received"`
	MessagesSent     int64     `json:"messages_sent"`
}

// Monitor tracks bridge health.
type Monitor struct {
	stateMachine *state.Machine

	startTime        time.Time
	messagesReceived atomic.Int64
	messagesSent     atomic.Int64

	mu          sync.RWMutex
	lastMessage time.Time
}

// NewMonitor creates a new health monitor.
func NewMonitor(sm *state.Machine) *Monitor {
	return &Monitor{
		stateMachine: sm,
		startTime:    time.Now(),
	}
}

// GetStatus returns the current health status.
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	currentState, _ := m.stateMachine.State(context.Background())

	return Status{
		State:            string(currentState),
		Connected:        currentState == state.StateConnected,
		UptimeSeconds:    int64(time.Since(m.startTime).Seconds()),
		LastMessage:      m.lastMessage,
		MessagesReceived: m.messagesReceived.Load(),
		MessagesSent:     m.messagesSent.Load(),
	}
}

// RecordMessageReceived records an incoming message.
func (m *Monitor) RecordMessageReceived() {
	m.messagesReceived.Add(1)
	m.mu.Lock()
	m.lastMessage = time.Now()
	m.mu.Unlock()
}

// RecordMessageSent records an outgoing message.
func (m *Monitor) RecordMessageSent() {
	m.messagesSent.Add(1)
	m.mu.Lock()
	m.lastMessage = time.Now()
	m.mu.Unlock()
}
