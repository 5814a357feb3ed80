package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rentmechat/internal/app/dto"
	"rentmechat/internal/app/policies"
	"rentmechat/internal/domain/chat"
	"rentmechat/internal/domain/shared/events"
)

// ChatHTTP exposes the chat REST contract.
type ChatHTTP interface {
	FindOrCreateConversation(c *gin.Context)
	ListMessages(c *gin.Context)
	SendMessage(c *gin.Context)
}

// ChatHandler serves conversations and messages from a ChatStore. Authentication
// happens upstream; sender ids are trusted as given.
type ChatHandler struct {
	Store  policies.ChatStore
	Events policies.EventPublisher
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// FindOrCreateConversation returns the single conversation of a listing/guest/host triple.
func (h ChatHandler) FindOrCreateConversation(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, dto.Error{Error: "messaging unavailable"})
		return
	}
	var req dto.FindOrCreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error{Error: "invalid payload"})
		return
	}
	triple := chat.Triple{
		ListingID: chat.ListingID(req.ListingID),
		GuestID:   chat.UserID(req.GuestID),
		HostID:    chat.UserID(req.HostID),
	}.Normalize()
	if err := triple.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error{Error: "listing_id, guest_id and host_id are required"})
		return
	}

	now := h.now()
	conv, created, err := h.Store.FindOrCreateConversation(c.Request.Context(), triple, chat.ConversationID(h.newID()), now)
	if err != nil {
		h.respondStoreError(c, err, "find or create conversation", "listing_id", triple.ListingID)
		return
	}
	if created {
		h.logInfo("conversation created", "conversation_id", conv.ID, "listing_id", conv.ListingID)
		h.publish(c, chat.ConversationCreatedEvent{
			ConversationID: conv.ID,
			ListingID:      conv.ListingID,
			GuestID:        conv.GuestID,
			HostID:         conv.HostID,
			At:             now,
		})
	}
	c.JSON(http.StatusOK, dto.Conversation{
		ID:        string(conv.ID),
		ListingID: string(conv.ListingID),
		GuestID:   string(conv.GuestID),
		HostID:    string(conv.HostID),
		CreatedAt: conv.CreatedAt,
	})
}

// ListMessages returns every message of a conversation, oldest first.
func (h ChatHandler) ListMessages(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, dto.Error{Error: "messaging unavailable"})
		return
	}
	conversationID := chat.ConversationID(strings.TrimSpace(c.Param("id")))
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, dto.Error{Error: "conversation id is required"})
		return
	}
	if _, err := h.Store.Conversation(c.Request.Context(), conversationID); err != nil {
		h.respondStoreError(c, err, "load conversation", "conversation_id", conversationID)
		return
	}
	messages, err := h.Store.ListMessages(c.Request.Context(), conversationID)
	if err != nil {
		h.respondStoreError(c, err, "list messages", "conversation_id", conversationID)
		return
	}
	chat.SortMessages(messages)
	items := make([]dto.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		items = append(items, toDTOMessage(msg))
	}
	c.JSON(http.StatusOK, items)
}

// SendMessage stores a message if the sender takes part in the conversation.
func (h ChatHandler) SendMessage(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, dto.Error{Error: "messaging unavailable"})
		return
	}
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error{Error: "invalid payload"})
		return
	}
	conversationID := chat.ConversationID(strings.TrimSpace(req.ConversationID))
	senderID := chat.UserID(strings.TrimSpace(req.SenderID))
	body := chat.NormalizeBody(req.Body)
	if conversationID == "" || senderID == "" || body == "" {
		c.JSON(http.StatusBadRequest, dto.Error{Error: "conversation_id, sender_id and body are required"})
		return
	}

	conv, err := h.Store.Conversation(c.Request.Context(), conversationID)
	if err != nil {
		h.respondStoreError(c, err, "load conversation", "conversation_id", conversationID)
		return
	}
	if !conv.HasParticipant(senderID) {
		h.respondStoreError(c, chat.ErrSenderNotParticipant, "send message", "conversation_id", conversationID, "sender_id", senderID)
		return
	}
	msg := chat.Message{
		ID:             chat.MessageID(h.newID()),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		SentAt:         h.now(),
		Status:         chat.StatusConfirmed,
	}
	if err := h.Store.AddMessage(c.Request.Context(), msg); err != nil {
		h.respondStoreError(c, err, "save message", "conversation_id", conversationID)
		return
	}
	h.publish(c, chat.MessageSentEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Body:           msg.Body,
		At:             msg.SentAt,
	})
	c.JSON(http.StatusCreated, toDTOMessage(msg))
}

func (h ChatHandler) respondStoreError(c *gin.Context, err error, action string, attrs ...any) {
	switch {
	case errors.Is(err, chat.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, dto.Error{Error: "conversation not found"})
		return
	case errors.Is(err, chat.ErrSenderNotParticipant):
		c.JSON(http.StatusForbidden, dto.Error{Error: "not a chat participant"})
		return
	}
	if h.Logger != nil {
		h.Logger.Error("chat store call failed", append([]any{"action", action, "error", err}, attrs...)...)
	}
	c.JSON(http.StatusInternalServerError, dto.Error{Error: "messaging unavailable"})
}

// publish never fails the request: the message is already stored.
func (h ChatHandler) publish(c *gin.Context, ev events.DomainEvent) {
	if h.Events == nil {
		return
	}
	if err := h.Events.Publish(c.Request.Context(), ev); err != nil && h.Logger != nil {
		h.Logger.Warn("chat event not published", "event", ev.EventName(), "error", err)
	}
}

func (h ChatHandler) logInfo(msg string, attrs ...any) {
	if h.Logger != nil {
		h.Logger.Info(msg, attrs...)
	}
}

func (h ChatHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h ChatHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

func toDTOMessage(msg chat.Message) dto.ChatMessage {
	return dto.ChatMessage{
		ID:             string(msg.ID),
		ConversationID: string(msg.ConversationID),
		SenderID:       string(msg.SenderID),
		Body:           msg.Body,
		SentAt:         msg.SentAt,
	}
}

var _ ChatHTTP = (*ChatHandler)(nil)
