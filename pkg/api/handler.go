// Package api exposes the bridge over a small JSON HTTP API, meant to be
// consumed by a trusted same-host backend.
package api

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nextshop/wabridge/internal/chats"
	"github.com/nextshop/wabridge/internal/health"
	"github.com/nextshop/wabridge/internal/phone"
	"github.com/nextshop/wabridge/internal/session"
	"github.com/nextshop/wabridge/internal/store"
	"github.com/nextshop/wabridge/internal/wa"
)

// messagePageSize is how many of a chat's most recent messages the listing
// endpoints return.
const messagePageSize = 50

// Handler holds the dependencies of the HTTP endpoints.
type Handler struct {
	client      wa.Client
	manager     *session.Manager
	cache       *chats.Cache
	msgStore    *store.MessageStore
	monitor     *health.Monitor
	log         *slog.Logger
	resyncDelay time.Duration
	origins     []string
}

// NewHandler creates the HTTP handler layer.
func NewHandler(client wa.Client, manager *session.Manager, cache *chats.Cache, msgStore *store.MessageStore, monitor *health.Monitor, origins []string, resyncDelay time.Duration, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		client:      client,
		manager:     manager,
		cache:       cache,
		msgStore:    msgStore,
		monitor:     monitor,
		log:         log.With("component", "api"),
		resyncDelay: resyncDelay,
		origins:     origins,
	}
}

// Router builds the gin engine with CORS and all routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins: h.origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", h.Health)
	router.GET("/status", h.Status)
	router.GET("/qr", h.QR)
	router.POST("/send", h.Send)
	router.GET("/chats", h.Chats)
	router.GET("/chats/:chatId/messages", h.ChatMessages)
	router.GET("/media/:msgId", h.Media)
	router.GET("/messages-by-phone/:phone", h.MessagesByPhone)
	router.GET("/search", h.Search)
	router.POST("/disconnect", h.Disconnect)

	return router
}

func (h *Handler) connected() bool {
	return h.manager.StateMachine().IsConnected()
}

// Health reports process uptime and message counters.
func (h *Handler) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.monitor.GetStatus())
}

// Status reports the session state and, when connected, the account identity.
func (h *Handler) Status(ctx *gin.Context) {
	st := h.manager.Status()
	ctx.JSON(http.StatusOK, gin.H{
		"connected": st.Connected,
		"info":      st.Info,
	})
}

// QR returns the current pairing image as a PNG data URI, or null when
// there is nothing to scan.
func (h *Handler) QR(ctx *gin.Context) {
	img := h.manager.QRImage()
	if img == "" {
		ctx.JSON(http.StatusOK, gin.H{"qr": nil})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"qr": img})
}

// Send delivers a text or media message. The recipient may be a phone
// number or a full chat identifier.
func (h *Handler) Send(ctx *gin.Context) {
	if !h.connected() {
		abortError(ctx, http.StatusServiceUnavailable, CodeNotConnected, "WhatsApp session is not connected")
		return
	}

	var req SendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abortError(ctx, http.StatusBadRequest, CodeInvalidRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.To) == "" {
		abortError(ctx, http.StatusBadRequest, CodeInvalidRequest, "recipient is required")
		return
	}
	if req.Message == "" && req.Media == nil {
		abortError(ctx, http.StatusBadRequest, CodeInvalidRequest, "either message or media is required")
		return
	}

	chatID := phone.ChatID(req.To)

	var messageID string
	var err error
	if req.Media != nil {
		data, decodeErr := base64.StdEncoding.DecodeString(req.Media.Data)
		if decodeErr != nil {
			abortError(ctx, http.StatusBadRequest, CodeInvalidRequest, "media data is not valid base64")
			return
		}
		payload := wa.MediaPayload{
			Data:     data,
			Mimetype: req.Media.Mimetype,
			Filename: req.Media.Filename,
		}
		messageID, err = h.client.SendMedia(ctx.Request.Context(), chatID, payload, req.Message)
	} else {
		messageID, err = h.client.SendText(ctx.Request.Context(), chatID, req.Message)
	}
	if err != nil {
		h.log.Error("send failed", "to", chatID, "error", err)
		abortError(ctx, http.StatusInternalServerError, CodeUpstreamError, err.Error())
		return
	}

	// The chat list will reflect the new message shortly; never await it.
	h.cache.SyncAfter(h.resyncDelay)

	ctx.JSON(http.StatusOK, SendResponse{Success: true, MessageID: messageID, To: chatID})
}

// Chats serves the cached chat list. ?refresh kicks off a background sync
// but still returns the current snapshot immediately.
func (h *Handler) Chats(ctx *gin.Context) {
	if !h.connected() {
		abortError(ctx, http.StatusServiceUnavailable, CodeNotConnected, "WhatsApp session is not connected")
		return
	}

	if _, refresh := ctx.GetQuery("refresh"); refresh {
		h.cache.SyncBackground()
	}

	snap := h.cache.Snapshot()
	var syncedAt *time.Time
	if !snap.SyncedAt.IsZero() {
		syncedAt = &snap.SyncedAt
	}
	ctx.JSON(http.StatusOK, gin.H{
		"chats":    snap.Chats,
		"syncing":  snap.Syncing,
		"syncedAt": syncedAt,
	})
}

// ChatMessages returns a chat's most recent messages, oldest first, and
// back-fills the message store so media stays downloadable.
func (h *Handler) ChatMessages(ctx *gin.Context) {
	if !h.connected() {
		abortError(ctx, http.StatusServiceUnavailable, CodeNotConnected, "WhatsApp session is not connected")
		return
	}

	chatID := ctx.Param("chatId")
	msgs, err := h.client.GetChatMessages(ctx.Request.Context(), chatID, messagePageSize)
	if err != nil {
		h.log.Error("failed to fetch chat messages", "chat", chatID, "error", err)
		abortError(ctx, http.StatusInternalServerError, CodeUpstreamError, err.Error())
		return
	}

	h.backfill(msgs)
	ctx.JSON(http.StatusOK, gin.H{"messages": toMessageList(msgs)})
}

// Media downloads the media payload of a stored message. Messages that
// have already been evicted from the store are a 404.
func (h *Handler) Media(ctx *gin.Context) {
	if !h.connected() {
		abortError(ctx, http.StatusServiceUnavailable, CodeNotConnected, "WhatsApp session is not connected")
		return
	}

	msgID := ctx.Param("msgId")
	msg, ok := h.msgStore.Get(msgID)
	if !ok {
		abortError(ctx, http.StatusNotFound, CodeNotFound, "message not found")
		return
	}
	if !msg.HasMedia() {
		abortError(ctx, http.StatusNotFound, CodeNotFound, "message has no media")
		return
	}

	payload, err := msg.DownloadMedia(ctx.Request.Context())
	if err != nil {
		h.log.Error("media download failed", "message", msgID, "error", err)
		abortError(ctx, http.StatusInternalServerError, CodeUpstreamError, err.Error())
		return
	}

	filename := payload.Filename
	if filename == "" {
		filename = uuid.New().String()
	}
	ctx.JSON(http.StatusOK, gin.H{
		"data":     base64.StdEncoding.EncodeToString(payload.Data),
		"mimetype": payload.Mimetype,
		"filename": filename,
	})
}

// MessagesByPhone resolves a phone number to a chat and returns its recent
// messages. An unknown number is found:false, not an error.
func (h *Handler) MessagesByPhone(ctx *gin.Context) {
	if !h.connected() {
		abortError(ctx, http.StatusServiceUnavailable, CodeNotConnected, "WhatsApp session is not connected")
		return
	}

	normalized := phone.Normalize(ctx.Param("phone"))
	if normalized == "" {
		abortError(ctx, http.StatusBadRequest, CodeInvalidRequest, "phone number is required")
		return
	}

	chatID := phone.ChatID(normalized)
	info, found, err := h.client.GetChatByID(ctx.Request.Context(), chatID)
	if err != nil {
		h.log.Error("chat lookup failed", "chat", chatID, "error", err)
		abortError(ctx, http.StatusInternalServerError, CodeUpstreamError, err.Error())
		return
	}
	if !found {
		ctx.JSON(http.StatusOK, gin.H{"found": false})
		return
	}

	msgs, err := h.client.GetChatMessages(ctx.Request.Context(), info.ID, messagePageSize)
	if err != nil {
		h.log.Error("failed to fetch chat messages", "chat", info.ID, "error", err)
		abortError(ctx, http.StatusInternalServerError, CodeUpstreamError, err.Error())
		return
	}

	h.backfill(msgs)
	ctx.JSON(http.StatusOK, gin.H{
		"found":    true,
		"chatId":   info.ID,
		"chatName": info.Name,
		"messages": toMessageList(msgs),
	})
}

// Search matches chats by name or last message body.
func (h *Handler) Search(ctx *gin.Context) {
	results := h.cache.Search(ctx.Query("q"))
	ctx.JSON(http.StatusOK, gin.H{"results": results})
}

// Disconnect logs the session out and invalidates it on the phone.
func (h *Handler) Disconnect(ctx *gin.Context) {
	if err := h.client.Logout(ctx.Request.Context()); err != nil {
		h.log.Error("logout failed", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "session disconnected",
	})
}

func (h *Handler) backfill(msgs []wa.Message) {
	for _, m := range msgs {
		h.msgStore.Put(m.ID(), m)
	}
	h.msgStore.Prune()
}
