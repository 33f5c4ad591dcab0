package whatsapp

import (
	"context"
	"sort"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/nextshop/wabridge/internal/wa"
)

// perChatCap bounds how many messages the index keeps per chat.
const perChatCap = 500

// chatState is one chat's slice of the in-memory index. whatsmeow has no
// "list chats" protocol call, so the index is rebuilt each session from
// history sync payloads and live message traffic.
type chatState struct {
	info wa.ChatInfo
	msgs []*message
	seen map[string]struct{}
}

func newChatState(chatID string, isGroup bool) *chatState {
	return &chatState{
		info: wa.ChatInfo{ID: chatID, IsGroup: isGroup},
		seen: make(map[string]struct{}),
	}
}

// add inserts a message, deduplicating by ID and updating the chat's
// last-message summary when the message is the newest seen so far.
func (s *chatState) add(msg *message) {
	if _, dup := s.seen[msg.id]; dup {
		return
	}
	s.seen[msg.id] = struct{}{}
	s.msgs = append(s.msgs, msg)

	if len(s.msgs) > perChatCap {
		evicted := s.msgs[0]
		delete(s.seen, evicted.id)
		s.msgs = s.msgs[1:]
	}

	if msg.timestamp.After(s.info.Timestamp) {
		s.info.Timestamp = msg.timestamp
		s.info.LastMessage = &wa.LastMessage{
			Body:      msg.body,
			Timestamp: msg.timestamp,
			FromMe:    msg.fromMe,
		}
	}
}

// record feeds a message into the chat index. inbound messages bump the
// unread counter; nameHint fills the chat name when we have nothing better.
func (c *Client) record(msg *message, inbound bool) {
	c.recordNamed(msg, inbound, "")
}

func (c *Client) recordNamed(msg *message, inbound bool, nameHint string) {
	c.chatsMu.Lock()
	defer c.chatsMu.Unlock()

	st := c.chats[msg.chatID]
	if st == nil {
		st = newChatState(msg.chatID, isGroupID(msg.chatID))
		c.chats[msg.chatID] = st
	}
	st.add(msg)
	if inbound {
		st.info.UnreadCount++
	}
	if st.info.Name == "" && nameHint != "" {
		st.info.Name = nameHint
	}
}

func (c *Client) recordOutbound(id string, chat types.JID, body string, raw *waE2E.Message, ts time.Time) {
	msg := c.newOutboundMessage(id, chat, body, raw, ts)
	c.record(msg, false)
	c.emit(wa.NewEvent(wa.EventMessage, wa.MessagePayload{Message: msg}))
}

// ingestHistorySync folds a history sync payload into the chat index.
// Individual conversations or messages that fail to parse are skipped.
func (c *Client) ingestHistorySync(evt *events.HistorySync) {
	cli := c.wm()
	if cli == nil {
		return
	}

	conversations := evt.Data.GetConversations()
	ingested := 0
	for _, conv := range conversations {
		chatJID, err := types.ParseJID(conv.GetID())
		if err != nil {
			c.log.Debug("skipping conversation with invalid JID", "jid", conv.GetID())
			continue
		}
		if chatJID.Server == types.LegacyUserServer {
			chatJID.Server = types.DefaultUserServer
		}
		chatID := chatJID.String()

		c.chatsMu.Lock()
		st := c.chats[chatID]
		if st == nil {
			st = newChatState(chatID, chatJID.Server == types.GroupServer)
			c.chats[chatID] = st
		}
		if name := conv.GetName(); name != "" {
			st.info.Name = name
		}
		if unread := conv.GetUnreadCount(); unread > 0 {
			st.info.UnreadCount = int(unread)
		}
		if ts := conv.GetConversationTimestamp(); ts > 0 {
			t := time.Unix(int64(ts), 0)
			if t.After(st.info.Timestamp) {
				st.info.Timestamp = t
			}
		}
		c.chatsMu.Unlock()

		for _, histMsg := range conv.GetMessages() {
			parsed, err := cli.ParseWebMessage(chatJID, histMsg.GetMessage())
			if err != nil {
				continue
			}
			c.record(c.newLiveMessage(parsed), false)
			ingested++
		}
	}

	c.log.Info("history sync ingested",
		"conversations", len(conversations),
		"messages", ingested)
}

// GetChats returns a snapshot of all known chats. Chats without a stored
// name fall back to the contact list, then to the bare account ID.
func (c *Client) GetChats(ctx context.Context) ([]wa.ChatInfo, error) {
	cli := c.wm()
	if cli == nil {
		return nil, ErrNotConnected
	}

	c.chatsMu.RLock()
	infos := make([]wa.ChatInfo, 0, len(c.chats))
	for _, st := range c.chats {
		infos = append(infos, st.info)
	}
	c.chatsMu.RUnlock()

	for i := range infos {
		if infos[i].Name == "" {
			infos[i].Name = c.resolveName(ctx, infos[i].ID)
		}
	}

	sort.SliceStable(infos, func(a, b int) bool {
		return infos[a].Timestamp.After(infos[b].Timestamp)
	})
	return infos, nil
}

// GetChatByID looks up a single chat in the index.
func (c *Client) GetChatByID(ctx context.Context, chatID string) (wa.ChatInfo, bool, error) {
	jid, err := toJID(chatID)
	if err != nil {
		return wa.ChatInfo{}, false, err
	}

	c.chatsMu.RLock()
	st, ok := c.chats[jid.String()]
	if !ok {
		c.chatsMu.RUnlock()
		return wa.ChatInfo{}, false, nil
	}
	info := st.info
	c.chatsMu.RUnlock()

	if info.Name == "" {
		info.Name = c.resolveName(ctx, info.ID)
	}
	return info, true, nil
}

// GetChatMessages returns up to limit of the chat's most recent messages,
// oldest first.
func (c *Client) GetChatMessages(ctx context.Context, chatID string, limit int) ([]wa.Message, error) {
	jid, err := toJID(chatID)
	if err != nil {
		return nil, err
	}

	c.chatsMu.RLock()
	defer c.chatsMu.RUnlock()

	st, ok := c.chats[jid.String()]
	if !ok {
		return nil, nil
	}

	msgs := make([]*message, len(st.msgs))
	copy(msgs, st.msgs)
	sort.SliceStable(msgs, func(a, b int) bool {
		return msgs[a].timestamp.Before(msgs[b].timestamp)
	})

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]wa.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
	}
	return out, nil
}

// resolveName looks the chat up in the contact store, falling back to the
// bare account ID portion of the JID.
func (c *Client) resolveName(ctx context.Context, chatID string) string {
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return chatID
	}

	if cli := c.wm(); cli != nil && jid.Server == types.DefaultUserServer {
		contact, err := cli.Store.Contacts.GetContact(ctx, jid)
		if err == nil && contact.Found {
			if contact.FullName != "" {
				return contact.FullName
			}
			if contact.PushName != "" {
				return contact.PushName
			}
		}
	}
	return jid.User
}

func isGroupID(chatID string) bool {
	jid, err := types.ParseJID(chatID)
	return err == nil && jid.Server == types.GroupServer
}
