package api

import (
	"time"

	"github.com/nextshop/wabridge/internal/wa"
)

// SendRequest is the body of POST /send. Exactly one of Message or Media
// must be present; Media may carry Message as its caption.
type SendRequest struct {
	To      string        `json:"to" binding:"required"`
	Message string        `json:"message"`
	Media   *MediaRequest `json:"media"`
}

// MediaRequest is a base64-encoded media attachment.
type MediaRequest struct {
	Data     string `json:"data" binding:"required"`
	Mimetype string `json:"mimetype" binding:"required"`
	Filename string `json:"filename"`
}

// SendResponse is the body of a successful POST /send.
type SendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	To        string `json:"to"`
}

// MessageJSON is the wire shape of a message on all listing endpoints.
type MessageJSON struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	FromMe    bool      `json:"fromMe"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Type      string    `json:"type"`
	HasMedia  bool      `json:"hasMedia"`
}

func toMessageJSON(m wa.Message) MessageJSON {
	return MessageJSON{
		ID:        m.ID(),
		ChatID:    m.ChatID(),
		Body:      m.Body(),
		Timestamp: m.Timestamp(),
		FromMe:    m.FromMe(),
		Sender:    m.Sender(),
		Recipient: m.Recipient(),
		Type:      m.Kind(),
		HasMedia:  m.HasMedia(),
	}
}

func toMessageList(msgs []wa.Message) []MessageJSON {
	out := make([]MessageJSON, len(msgs))
	for i, m := range msgs {
		out[i] = toMessageJSON(m)
	}
	return out
}
