package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentmechat/internal/domain/chat"
)

// Outgoing is the persist request for one message.
type Outgoing struct {
	ConversationID chat.ConversationID
	SenderID       chat.UserID
	Body           string
}

// Sender persists a message. The server echoes no client id back.
type Sender interface {
	SendMessage(ctx context.Context, msg Outgoing) error
}

// Log is the slice of the Synchronizer the composer may touch: it appends
// provisional entries and flags them, never confirmed ones.
type Log interface {
	AppendProvisional(m chat.Message) error
	MarkFailed(id chat.MessageID)
	MarkPending(id chat.MessageID, at time.Time) (chat.Message, error)
	Unsent() []chat.Message
}

type Options struct {
	Viewer         chat.UserID
	ConversationID chat.ConversationID
	Logger         *slog.Logger
	Now            func() time.Time
	NewID          func() chat.MessageID
}

// Composer appends a provisional message before the send request leaves, and
// leaves confirmation to the next merge cycle.
type Composer struct {
	sender         Sender
	log            Log
	viewer         chat.UserID
	conversationID chat.ConversationID
	logger         *slog.Logger
	now            func() time.Time
	newID          func() chat.MessageID
}

func New(sender Sender, log Log, opts Options) *Composer {
	c := &Composer{
		sender:         sender,
		log:            log,
		viewer:         chat.UserID(strings.TrimSpace(string(opts.Viewer))),
		conversationID: opts.ConversationID,
		logger:         opts.Logger,
		now:            opts.Now,
		newID:          opts.NewID,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = func() chat.MessageID { return chat.MessageID("local-" + uuid.NewString()) }
	}
	return c
}

// Send is a no-op returning a validation error for blank text, an unresolved
// conversation or an unknown viewer. Otherwise the provisional entry is in the
// log before the request is issued; on failure it stays there flagged unsent
// and the error wraps chat.ErrSendRejected.
func (c *Composer) Send(ctx context.Context, text string) (chat.Message, error) {
	body := chat.NormalizeBody(text)
	switch {
	case body == "":
		return chat.Message{}, chat.ErrEmptyBody
	case c.conversationID == "":
		return chat.Message{}, chat.ErrNoConversation
	case c.viewer == "":
		return chat.Message{}, chat.ErrUnknownViewer
	}
	m := chat.Message{
		ID:             c.newID(),
		ConversationID: c.conversationID,
		SenderID:       c.viewer,
		Body:           body,
		SentAt:         c.now(),
		Status:         chat.StatusPending,
	}
	if err := c.log.AppendProvisional(m); err != nil {
		return chat.Message{}, err
	}
	return m, c.persist(ctx, m)
}

// Retry re-sends one unsent entry. It is only ever called on user request.
func (c *Composer) Retry(ctx context.Context, id chat.MessageID) (chat.Message, error) {
	m, err := c.log.MarkPending(id, c.now())
	if err != nil {
		return chat.Message{}, err
	}
	return m, c.persist(ctx, m)
}

// RetryUnsent re-sends every unsent entry, oldest first, and returns the first failure.
func (c *Composer) RetryUnsent(ctx context.Context) error {
	var firstErr error
	for _, m := range c.log.Unsent() {
		if _, err := c.Retry(ctx, m.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Composer) persist(ctx context.Context, m chat.Message) error {
	err := c.sender.SendMessage(ctx, Outgoing{
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
	})
	if err == nil {
		return nil
	}
	c.log.MarkFailed(m.ID)
	if c.logger != nil {
		c.logger.Warn("message send failed", "conversation_id", m.ConversationID, "message_id", m.ID, "error", err)
	}
	return fmt.Errorf("%w: %w", chat.ErrSendRejected, err)
}
