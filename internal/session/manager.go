// Package session owns the single underlying WhatsApp connection: it
// consumes the client's event stream, applies state transitions, holds the
// current pairing image and account identity, and wipes all dependent
// caches when the session ends.
package session

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/mdp/qrterminal/v3"
	"github.com/skip2/go-qrcode"

	"github.com/nextshop/wabridge/internal/chats"
	"github.com/nextshop/wabridge/internal/health"
	"github.com/nextshop/wabridge/internal/state"
	"github.com/nextshop/wabridge/internal/store"
	"github.com/nextshop/wabridge/internal/wa"
)

// qrImageSize is the pixel width of the rendered pairing image.
const qrImageSize = 300

// Status is the session summary served on /status.
type Status struct {
	Connected bool
	Info      *wa.Identity
}

// Manager drives the session lifecycle from client events.
type Manager struct {
	client  wa.Client
	sm      *state.Machine
	cache   *chats.Cache
	store   *store.MessageStore
	monitor *health.Monitor
	log     *slog.Logger

	mu          sync.RWMutex
	qrImage     string
	identity    wa.Identity
	hasIdentity bool

	printQR bool
}

// NewManager creates a session manager. The cache and message store are
// wiped by the manager whenever the session disconnects.
func NewManager(client wa.Client, sm *state.Machine, cache *chats.Cache, msgStore *store.MessageStore, monitor *health.Monitor, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		client:  client,
		sm:      sm,
		cache:   cache,
		store:   msgStore,
		monitor: monitor,
		log:     log.With("component", "session"),
		printQR: true,
	}
}

// StateMachine returns the session state machine.
func (m *Manager) StateMachine() *state.Machine {
	return m.sm
}

// Start begins consuming client events and connects in the background.
// It is fire-and-forget: connection failures are logged, not returned —
// the pairing/disconnect event stream is the real signal of health.
func (m *Manager) Start(ctx context.Context) {
	go m.dispatch(ctx)
	go m.connectWithRetry(ctx)
}

func (m *Manager) connectWithRetry(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		if err := m.client.Connect(ctx); err != nil {
			m.log.Warn("connect attempt failed, will retry", "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		m.log.Error("giving up connecting to WhatsApp", "error", err)
	}
}

// dispatch is the single consumer of the client's event stream. All
// session state mutation happens here.
func (m *Manager) dispatch(ctx context.Context) {
	events := m.client.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			m.handleEvent(ctx, evt)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, evt wa.Event) {
	m.log.Debug("client event", "type", evt.Type.String())

	switch evt.Type {
	case wa.EventQR:
		payload, ok := evt.Payload.(wa.QRPayload)
		if !ok {
			m.log.Error("invalid qr payload")
			return
		}
		m.handleQR(ctx, payload.Code)

	case wa.EventReady:
		payload, ok := evt.Payload.(wa.ReadyPayload)
		if !ok {
			m.log.Error("invalid ready payload")
			return
		}
		m.handleReady(ctx, payload.Identity)

	case wa.EventAuthFailure:
		reason := ""
		if payload, ok := evt.Payload.(wa.AuthFailurePayload); ok {
			reason = payload.Reason
		}
		m.handleAuthFailure(ctx, reason)

	case wa.EventDisconnected:
		reason := ""
		if payload, ok := evt.Payload.(wa.DisconnectedPayload); ok {
			reason = payload.Reason
		}
		m.handleDisconnected(ctx, reason)

	case wa.EventMessage:
		payload, ok := evt.Payload.(wa.MessagePayload)
		if !ok || payload.Message == nil {
			m.log.Error("invalid message payload")
			return
		}
		m.handleMessage(payload.Message)
	}
}

func (m *Manager) handleQR(ctx context.Context, code string) {
	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		m.log.Error("failed to render pairing image", "error", err)
		return
	}
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	m.mu.Lock()
	m.qrImage = dataURI
	m.mu.Unlock()

	if err := m.sm.Fire(ctx, state.TriggerQRReceived); err != nil {
		m.log.Error("state transition failed", "trigger", state.TriggerQRReceived, "error", err)
	}

	m.log.Info("pairing code ready, scan it with WhatsApp mobile")
	if m.printQR {
		qrterminal.GenerateHalfBlock(code, qrterminal.L, os.Stderr)
	}
}

func (m *Manager) handleReady(ctx context.Context, identity wa.Identity) {
	m.mu.Lock()
	m.identity = identity
	m.hasIdentity = true
	m.qrImage = "" // meaningless once paired
	m.mu.Unlock()

	if err := m.sm.Fire(ctx, state.TriggerReady); err != nil {
		m.log.Error("state transition failed", "trigger", state.TriggerReady, "error", err)
	}

	m.log.Info("session ready", "account", identity.AccountID, "pushname", identity.DisplayName)
	m.cache.SyncBackground()
}

func (m *Manager) handleAuthFailure(ctx context.Context, reason string) {
	m.mu.Lock()
	m.identity = wa.Identity{}
	m.hasIdentity = false
	m.mu.Unlock()

	if err := m.sm.Fire(ctx, state.TriggerAuthFailure); err != nil {
		m.log.Error("state transition failed", "trigger", state.TriggerAuthFailure, "error", err)
	}

	// Reported, not retried: the operator must re-initiate pairing.
	m.log.Error("authentication failed", "reason", reason)
}

func (m *Manager) handleDisconnected(ctx context.Context, reason string) {
	m.mu.Lock()
	m.identity = wa.Identity{}
	m.hasIdentity = false
	m.qrImage = ""
	m.mu.Unlock()

	if err := m.sm.Fire(ctx, state.TriggerDisconnected); err != nil {
		m.log.Error("state transition failed", "trigger", state.TriggerDisconnected, "error", err)
	}

	// No stale cross-session data may leak into a new session.
	m.cache.Clear()
	m.store.Clear()

	m.log.Warn("session disconnected", "reason", reason)
}

func (m *Manager) handleMessage(msg wa.Message) {
	m.store.Put(msg.ID(), msg)
	m.store.Prune()

	if m.monitor != nil {
		if msg.FromMe() {
			m.monitor.RecordMessageSent()
		} else {
			m.monitor.RecordMessageReceived()
		}
	}
}

// Status returns whether the session is connected and, if so, the account
// identity.
func (m *Manager) Status() Status {
	connected := m.sm.IsConnected()

	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{Connected: connected}
	if connected && m.hasIdentity {
		info := m.identity
		st.Info = &info
	}
	return st
}

// QRImage returns the current pairing image as a data URI, or "" when no
// code is pending. The image is never exposed while connected.
func (m *Manager) QRImage() string {
	if m.sm.IsConnected() {
		return ""
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.qrImage
}
