// Package wa defines the abstraction over the underlying WhatsApp client.
// The rest of the bridge only depends on these types, which allows the
// concrete whatsmeow implementation to be swapped for a fake in tests.
package wa

import (
	"context"
	"time"
)

// Identity describes the authenticated WhatsApp account.
type Identity struct {
	DisplayName string `json:"pushname"`
	AccountID   string `json:"number"`
	Platform    string `json:"platform"`
}

// LastMessage is the preview of the most recent message in a chat.
type LastMessage struct {
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	FromMe    bool      `json:"fromMe"`
}

// ChatInfo describes a conversation as reported by the underlying client.
type ChatInfo struct {
	ID          string
	Name        string
	IsGroup     bool
	UnreadCount int
	LastMessage *LastMessage
	Timestamp   time.Time
}

// MediaPayload is a decoded media attachment.
type MediaPayload struct {
	Data     []byte
	Mimetype string
	Filename string
}

// Message is the handle to a message kept in memory so its media payload
// can be fetched later. It captures exactly the capabilities the bridge
// needs without leaking the underlying client's concrete type.
type Message interface {
	ID() string
	ChatID() string
	Body() string
	Timestamp() time.Time
	FromMe() bool
	Sender() string
	Recipient() string
	Kind() string
	HasMedia() bool

	// DownloadMedia fetches the attachment bytes on demand. Media is never
	// downloaded eagerly; this may block on the network.
	DownloadMedia(ctx context.Context) (*MediaPayload, error)
}

// Client is the interface to the underlying WhatsApp connection.
type Client interface {
	// Connect establishes the connection. Pairing codes and lifecycle
	// changes are reported through Events, not returned here.
	Connect(ctx context.Context) error
	Disconnect()
	Logout(ctx context.Context) error
	IsLoggedIn() bool
	Identity() Identity

	// GetChats returns the current conversations. Order is not guaranteed;
	// callers sort by recency themselves.
	GetChats(ctx context.Context) ([]ChatInfo, error)

	// GetChatByID looks up a single conversation. The second return value
	// reports whether the chat exists.
	GetChatByID(ctx context.Context, chatID string) (ChatInfo, bool, error)

	// GetChatMessages returns up to limit most recent messages of a chat,
	// oldest first.
	GetChatMessages(ctx context.Context, chatID string, limit int) ([]Message, error)

	SendText(ctx context.Context, chatID, body string) (string, error)
	SendMedia(ctx context.Context, chatID string, media MediaPayload, caption string) (string, error)

	// Events returns the lifecycle and message event stream. The channel is
	// closed when the client shuts down for good.
	Events() <-chan Event
}
