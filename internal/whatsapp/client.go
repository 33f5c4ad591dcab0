// Package whatsapp implements the wa.Client interface using whatsmeow.
// Session credentials are persisted by whatsmeow's own sqlstore; every
// other piece of state lives in memory and dies with the process.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nextshop/wabridge/internal/wa"
)

// Common errors
var (
	ErrNotConnected = errors.New("not connected to WhatsApp")
	ErrInvalidChat  = errors.New("invalid chat identifier")
)

// Client wraps the whatsmeow client behind the wa.Client interface.
type Client struct {
	container *sqlstore.Container
	log       *slog.Logger

	mu     sync.RWMutex
	client *whatsmeow.Client

	events chan wa.Event

	chatsMu sync.RWMutex
	chats   map[string]*chatState
}

var _ wa.Client = (*Client)(nil)

// Config holds configuration for the WhatsApp client.
type Config struct {
	SessionPath string
}

// NewClient creates a new WhatsApp client. The session database directory
// is created if missing.
func NewClient(ctx context.Context, cfg *Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	storeDir := filepath.Dir(cfg.SessionPath)
	if err := os.MkdirAll(storeDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	dbLog := &slogAdapter{log: log.With("component", "whatsmeow-db")}
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", cfg.SessionPath), dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	return &Client{
		container: container,
		log:       log.With("component", "whatsapp"),
		events:    make(chan wa.Event, 128),
		chats:     make(map[string]*chatState),
	}, nil
}

// Connect establishes the connection. Pairing codes, readiness, and
// disconnects are all reported through the event stream.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()

	if c.client != nil && c.client.IsConnected() {
		c.mu.Unlock()
		return nil
	}

	deviceStore, err := c.container.GetFirstDevice(ctx)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to get device store: %w", err)
	}

	clientLog := &slogAdapter{log: c.log.With("component", "whatsmeow")}
	c.client = whatsmeow.NewClient(deviceStore, clientLog)
	c.client.AddEventHandler(c.handleEvent)

	cli := c.client
	c.mu.Unlock()

	if cli.Store.ID == nil {
		c.log.Info("no session found, pairing required")
	}
	if err := cli.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

// Disconnect closes the connection without invalidating the session.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Disconnect()
	}
}

// Logout invalidates the session on the phone and disconnects.
func (c *Client) Logout(ctx context.Context) error {
	cli := c.wm()
	if cli == nil {
		return ErrNotConnected
	}
	if err := cli.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	c.emit(wa.NewEvent(wa.EventDisconnected, wa.DisconnectedPayload{Reason: "logout"}))
	return nil
}

// IsLoggedIn returns true if an authenticated session exists.
func (c *Client) IsLoggedIn() bool {
	cli := c.wm()
	return cli != nil && cli.Store.ID != nil
}

// Identity returns the authenticated account identity, with empty-string
// defaults when unavailable.
func (c *Client) Identity() wa.Identity {
	cli := c.wm()
	if cli == nil || cli.Store.ID == nil {
		return wa.Identity{}
	}
	return wa.Identity{
		DisplayName: cli.Store.PushName,
		AccountID:   cli.Store.ID.User,
		Platform:    cli.Store.Platform,
	}
}

// Events returns the lifecycle and message event stream.
func (c *Client) Events() <-chan wa.Event {
	return c.events
}

// wm returns the underlying whatsmeow client, or nil before Connect.
func (c *Client) wm() *whatsmeow.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

func (c *Client) emit(evt wa.Event) {
	select {
	case c.events <- evt:
	default:
		c.log.Warn("event queue full, dropping event", "type", evt.Type.String())
	}
}

// handleEvent translates raw whatsmeow events into the bridge's typed
// event stream and feeds the in-memory chat index.
func (c *Client) handleEvent(rawEvt interface{}) {
	switch evt := rawEvt.(type) {
	case *events.QR:
		if len(evt.Codes) > 0 {
			// Only the first code is currently active; whatsmeow fires a
			// new QR event on rotation.
			c.emit(wa.NewEvent(wa.EventQR, wa.QRPayload{Code: evt.Codes[0]}))
		}

	case *events.PairSuccess:
		c.log.Info("pairing successful")

	case *events.Connected:
		c.emit(wa.NewEvent(wa.EventReady, wa.ReadyPayload{Identity: c.Identity()}))

	case *events.LoggedOut:
		c.emit(wa.NewEvent(wa.EventAuthFailure, wa.AuthFailurePayload{Reason: evt.Reason.String()}))
		c.emit(wa.NewEvent(wa.EventDisconnected, wa.DisconnectedPayload{Reason: "logged out"}))

	case *events.StreamReplaced:
		c.emit(wa.NewEvent(wa.EventDisconnected, wa.DisconnectedPayload{Reason: "stream replaced"}))

	case *events.Disconnected:
		c.emit(wa.NewEvent(wa.EventDisconnected, wa.DisconnectedPayload{Reason: "connection closed"}))

	case *events.Message:
		msg := c.newLiveMessage(evt)
		nameHint := ""
		if !evt.Info.IsFromMe && !evt.Info.IsGroup {
			nameHint = evt.Info.PushName
		}
		c.recordNamed(msg, !evt.Info.IsFromMe, nameHint)
		c.emit(wa.NewEvent(wa.EventMessage, wa.MessagePayload{Message: msg}))

	case *events.HistorySync:
		c.ingestHistorySync(evt)
	}
}

// --- Messaging operations ---

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, chatID, body string) (string, error) {
	cli := c.wm()
	if cli == nil || !cli.IsConnected() {
		return "", ErrNotConnected
	}

	recipient, err := toJID(chatID)
	if err != nil {
		return "", err
	}

	resp, err := cli.SendMessage(ctx, recipient, &waE2E.Message{
		Conversation: proto.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	c.recordOutbound(resp.ID, recipient, body, &waE2E.Message{Conversation: proto.String(body)}, resp.Timestamp)
	return resp.ID, nil
}

// SendMedia uploads the payload and sends it as an image, video, audio, or
// document message depending on its MIME type. caption is attached where
// the message kind supports one.
func (c *Client) SendMedia(ctx context.Context, chatID string, media wa.MediaPayload, caption string) (string, error) {
	cli := c.wm()
	if cli == nil || !cli.IsConnected() {
		return "", ErrNotConnected
	}

	recipient, err := toJID(chatID)
	if err != nil {
		return "", err
	}

	mediaType := uploadTypeFor(media.Mimetype)
	uploaded, err := cli.Upload(ctx, media.Data, mediaType)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	msg := buildMediaMessage(media, caption, uploaded, mediaType)
	resp, err := cli.SendMessage(ctx, recipient, msg)
	if err != nil {
		return "", fmt.Errorf("failed to send media: %w", err)
	}

	c.recordOutbound(resp.ID, recipient, caption, msg, resp.Timestamp)
	return resp.ID, nil
}

func uploadTypeFor(mimetype string) whatsmeow.MediaType {
	switch {
	case strings.HasPrefix(mimetype, "image/"):
		return whatsmeow.MediaImage
	case strings.HasPrefix(mimetype, "video/"):
		return whatsmeow.MediaVideo
	case strings.HasPrefix(mimetype, "audio/"):
		return whatsmeow.MediaAudio
	default:
		return whatsmeow.MediaDocument
	}
}

func buildMediaMessage(media wa.MediaPayload, caption string, uploaded whatsmeow.UploadResponse, mediaType whatsmeow.MediaType) *waE2E.Message {
	length := proto.Uint64(uint64(len(media.Data)))

	switch mediaType {
	case whatsmeow.MediaImage:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(media.Mimetype),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    length,
		}}
	case whatsmeow.MediaVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(media.Mimetype),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    length,
		}}
	case whatsmeow.MediaAudio:
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			Mimetype:      proto.String(media.Mimetype),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    length,
		}}
	default:
		return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			Title:         proto.String(media.Filename),
			FileName:      proto.String(media.Filename),
			Mimetype:      proto.String(media.Mimetype),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    length,
		}}
	}
}

// toJID parses a chat identifier into a whatsmeow JID. Legacy "c.us"
// identifiers are normalized to the modern user server.
func toJID(chatID string) (types.JID, error) {
	if chatID == "" {
		return types.JID{}, ErrInvalidChat
	}
	if !strings.Contains(chatID, "@") {
		return types.NewJID(chatID, types.DefaultUserServer), nil
	}
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return types.JID{}, fmt.Errorf("%w: %s", ErrInvalidChat, chatID)
	}
	if jid.Server == types.LegacyUserServer {
		jid.Server = types.DefaultUserServer
	}
	return jid, nil
}

// --- Helper types ---

// slogAdapter adapts slog.Logger to whatsmeow's log interface.
type slogAdapter struct {
	log *slog.Logger
}

func (s *slogAdapter) Debugf(msg string, args ...interface{}) {
	s.log.Debug(fmt.Sprintf(msg, args...))
}

func (s *slogAdapter) Infof(msg string, args ...interface{}) {
	s.log.Info(fmt.Sprintf(msg, args...))
}

func (s *slogAdapter) Warnf(msg string, args ...interface{}) {
	s.log.Warn(fmt.Sprintf(msg, args...))
}

func (s *slogAdapter) Errorf(msg string, args ...interface{}) {
	s.log.Error(fmt.Sprintf(msg, args...))
}

func (s *slogAdapter) Sub(module string) waLog.Logger {
	return &slogAdapter{log: s.log.With("module", module)}
}

var _ waLog.Logger = (*slogAdapter)(nil)
