package whatsapp

import (
	"context"
	"fmt"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/nextshop/wabridge/internal/wa"
)

// message is the concrete wa.Message backed by a raw protocol message.
// The raw payload is kept around so media can be downloaded on demand.
type message struct {
	client *Client

	id        string
	chatID    string
	sender    string
	recipient string
	body      string
	timestamp time.Time
	fromMe    bool
	kind      string

	raw *waE2E.Message
}

func (m *message) ID() string           { return m.id }
func (m *message) ChatID() string       { return m.chatID }
func (m *message) Body() string         { return m.body }
func (m *message) Timestamp() time.Time { return m.timestamp }
func (m *message) FromMe() bool         { return m.fromMe }
func (m *message) Sender() string       { return m.sender }
func (m *message) Recipient() string    { return m.recipient }
func (m *message) Kind() string         { return m.kind }

func (m *message) HasMedia() bool {
	return mediaKind(m.raw) != ""
}

// DownloadMedia fetches and decrypts the media payload. Returns an error
// for messages without media.
func (m *message) DownloadMedia(ctx context.Context) (*wa.MediaPayload, error) {
	if m.raw == nil || !m.HasMedia() {
		return nil, fmt.Errorf("message %s has no media", m.id)
	}

	cli := m.client.wm()
	if cli == nil {
		return nil, ErrNotConnected
	}

	data, err := cli.DownloadAny(ctx, m.raw)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}

	return &wa.MediaPayload{
		Data:     data,
		Mimetype: mediaMimetype(m.raw),
		Filename: mediaFilename(m.raw),
	}, nil
}

// newLiveMessage builds a message from a live protocol event.
func (c *Client) newLiveMessage(evt *events.Message) *message {
	own := ""
	if cli := c.wm(); cli != nil && cli.Store.ID != nil {
		own = cli.Store.ID.ToNonAD().String()
	}

	sender := evt.Info.Sender.ToNonAD().String()
	recipient := evt.Info.Chat.String()
	if !evt.Info.IsFromMe {
		recipient = own
	}

	return &message{
		client:    c,
		id:        evt.Info.ID,
		chatID:    evt.Info.Chat.String(),
		sender:    sender,
		recipient: recipient,
		body:      extractBody(evt.Message),
		timestamp: evt.Info.Timestamp,
		fromMe:    evt.Info.IsFromMe,
		kind:      messageKind(evt.Message),
		raw:       evt.Message,
	}
}

// newOutboundMessage synthesizes a message record for something this
// process just sent, so the store and chat index see our own traffic
// without waiting for a server echo.
func (c *Client) newOutboundMessage(id string, chat types.JID, body string, raw *waE2E.Message, ts time.Time) *message {
	own := ""
	if cli := c.wm(); cli != nil && cli.Store.ID != nil {
		own = cli.Store.ID.ToNonAD().String()
	}
	return &message{
		client:    c,
		id:        id,
		chatID:    chat.String(),
		sender:    own,
		recipient: chat.String(),
		body:      body,
		timestamp: ts,
		fromMe:    true,
		kind:      messageKind(raw),
		raw:       raw,
	}
}

// extractBody pulls the human-readable text out of the many shapes a
// protocol message can take.
func extractBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage().GetText() != "":
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage() != nil:
		if caption := msg.GetDocumentMessage().GetCaption(); caption != "" {
			return caption
		}
		return msg.GetDocumentMessage().GetFileName()
	default:
		return ""
	}
}

// mediaKind returns the media category of the message, or "" for plain text.
func mediaKind(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	switch {
	case msg.GetImageMessage() != nil:
		return "image"
	case msg.GetVideoMessage() != nil:
		return "video"
	case msg.GetAudioMessage() != nil:
		return "audio"
	case msg.GetDocumentMessage() != nil:
		return "document"
	case msg.GetStickerMessage() != nil:
		return "sticker"
	default:
		return ""
	}
}

func messageKind(msg *waE2E.Message) string {
	if kind := mediaKind(msg); kind != "" {
		return kind
	}
	return "chat"
}

func mediaMimetype(msg *waE2E.Message) string {
	switch {
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetMimetype()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetMimetype()
	case msg.GetAudioMessage() != nil:
		return msg.GetAudioMessage().GetMimetype()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetMimetype()
	case msg.GetStickerMessage() != nil:
		return msg.GetStickerMessage().GetMimetype()
	default:
		return ""
	}
}

func mediaFilename(msg *waE2E.Message) string {
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc.GetFileName()
	}
	return ""
}
