// Package chats maintains the periodically refreshed snapshot of recent
// conversations. Reads are always served from memory; only the background
// sync talks to the underlying client.
package chats

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nextshop/wabridge/internal/state"
	"github.com/nextshop/wabridge/internal/wa"
)

// MaxChats is the number of most recent conversations kept in the cache.
const MaxChats = 50

// Summary is the cached projection of a conversation.
type Summary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	IsGroup     bool            `json:"isGroup"`
	UnreadCount int             `json:"unreadCount"`
	LastMessage *wa.LastMessage `json:"lastMessage,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Snapshot is the result of a cache read.
type Snapshot struct {
	Chats    []Summary
	Syncing  bool
	SyncedAt time.Time
}

// Cache holds the chat snapshot and coordinates background refreshes.
type Cache struct {
	client wa.Client
	sm     *state.Machine
	log    *slog.Logger

	mu       sync.RWMutex
	entries  []Summary
	syncedAt time.Time

	syncing atomic.Bool
}

// NewCache creates an empty cache backed by client.
func NewCache(client wa.Client, sm *state.Machine, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		client: client,
		sm:     sm,
		log:    log.With("component", "chats"),
	}
}

// SyncBackground refreshes the cache in a goroutine. It is a no-op when
// the session is not connected, and single-flight: a refresh already in
// progress suppresses concurrent attempts instead of queuing them. Errors
// are logged and swallowed; a failed sync leaves the previous snapshot in
// place.
func (c *Cache) SyncBackground() {
	if !c.sm.IsConnected() {
		return
	}
	if !c.syncing.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer c.syncing.Store(false)

		chats, err := c.client.GetChats(context.Background())
		if err != nil {
			c.log.Error("chat sync failed, keeping previous snapshot", "error", err)
			return
		}

		// The underlying client's ordering is unspecified; sort by recency
		// explicitly before capping.
		sort.SliceStable(chats, func(i, j int) bool {
			return chats[i].Timestamp.After(chats[j].Timestamp)
		})
		if len(chats) > MaxChats {
			chats = chats[:MaxChats]
		}

		entries := make([]Summary, 0, len(chats))
		for _, ch := range chats {
			entries = append(entries, Summary{
				ID:          ch.ID,
				Name:        ch.Name,
				IsGroup:     ch.IsGroup,
				UnreadCount: ch.UnreadCount,
				LastMessage: ch.LastMessage,
				Timestamp:   ch.Timestamp,
			})
		}

		c.mu.Lock()
		c.entries = entries
		c.syncedAt = time.Now()
		c.mu.Unlock()

		c.log.Debug("chat snapshot refreshed", "chats", len(entries))
	}()
}

// SyncAfter schedules a background refresh after d. Used after a send so
// the underlying client's own state settles before it is re-read.
func (c *Cache) SyncAfter(d time.Duration) {
	time.AfterFunc(d, c.SyncBackground)
}

// Run triggers a refresh on a fixed interval until ctx is cancelled. Ticks
// while disconnected are skipped by SyncBackground itself.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SyncBackground()
		}
	}
}

// Snapshot returns the current chat list without touching the client.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chats := make([]Summary, len(c.entries))
	copy(chats, c.entries)
	return Snapshot{
		Chats:    chats,
		Syncing:  c.syncing.Load(),
		SyncedAt: c.syncedAt,
	}
}

// Clear wipes the snapshot and its sync timestamp. Called on disconnect.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.syncedAt = time.Time{}
}
