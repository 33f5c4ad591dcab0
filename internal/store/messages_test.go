package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextshop/wabridge/internal/wa"
)

type fakeMessage struct {
	id string
}

func (f *fakeMessage) ID() string           { return f.id }
func (f *fakeMessage) ChatID() string       { return "123@c.us" }
func (f *fakeMessage) Body() string         { return "body-" + f.id }
func (f *fakeMessage) Timestamp() time.Time { return time.Unix(0, 0) }
func (f *fakeMessage) FromMe() bool         { return false }
func (f *fakeMessage) Sender() string       { return "123@c.us" }
func (f *fakeMessage) Recipient() string    { return "me" }
func (f *fakeMessage) Kind() string         { return "chat" }
func (f *fakeMessage) HasMedia() bool       { return false }
func (f *fakeMessage) DownloadMedia(context.Context) (*wa.MediaPayload, error) {
	return nil, fmt.Errorf("no media")
}

func TestMessageStore_PutGet(t *testing.T) {
	s := NewMessageStore(10)

	msg := &fakeMessage{id: "a"}
	s.Put("a", msg)

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, msg, got)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestMessageStore_IgnoresEmpty(t *testing.T) {
	s := NewMessageStore(10)
	s.Put("", &fakeMessage{id: "x"})
	s.Put("x", nil)
	assert.Equal(t, 0, s.Len())
}

func TestMessageStore_PruneKeepsMostRecentlyInserted(t *testing.T) {
	s := NewMessageStore(100)

	for i := 0; i < 150; i++ {
		id := fmt.Sprintf("msg-%03d", i)
		s.Put(id, &fakeMessage{id: id})
	}
	s.Prune()

	assert.Equal(t, 100, s.Len())

	// The 50 oldest-inserted keys are gone, the 100 newest remain.
	for i := 0; i < 50; i++ {
		_, ok := s.Get(fmt.Sprintf("msg-%03d", i))
		assert.False(t, ok, "msg-%03d should be evicted", i)
	}
	for i := 50; i < 150; i++ {
		_, ok := s.Get(fmt.Sprintf("msg-%03d", i))
		assert.True(t, ok, "msg-%03d should be retained", i)
	}
}

func TestMessageStore_PruneNoopUnderCap(t *testing.T) {
	s := NewMessageStore(10)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("m%d", i)
		s.Put(id, &fakeMessage{id: id})
	}
	s.Prune()
	assert.Equal(t, 5, s.Len())
}

func TestMessageStore_ReinsertKeepsEvictionPosition(t *testing.T) {
	s := NewMessageStore(2)

	s.Put("a", &fakeMessage{id: "a"})
	s.Put("b", &fakeMessage{id: "b"})
	// Re-inserting "a" must not refresh its position: it stays oldest.
	s.Put("a", &fakeMessage{id: "a2"})
	s.Put("c", &fakeMessage{id: "c"})
	s.Prune()

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("a")
	assert.False(t, ok, "a was inserted first and must be evicted first")
	_, ok = s.Get("b")
	assert.True(t, ok)
	_, ok = s.Get("c")
	assert.True(t, ok)
}

func TestMessageStore_Clear(t *testing.T) {
	s := NewMessageStore(10)
	s.Put("a", &fakeMessage{id: "a"})
	s.Put("b", &fakeMessage{id: "b"})

	s.Clear()

	assert.Equal(t, 0, s.Len())
	_, ok := s.Get("a")
	assert.False(t, ok)
}

func TestMessageStore_DefaultCap(t *testing.T) {
	s := NewMessageStore(0)
	assert.Equal(t, DefaultCap, s.cap)
}
