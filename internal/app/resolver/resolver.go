package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"rentmechat/internal/domain/chat"
)

// Finder is the find-or-create collaborator, idempotent per triple on the server side.
type Finder interface {
	FindOrCreateConversation(ctx context.Context, triple chat.Triple) (chat.Conversation, error)
}

// Request carries either a known conversation id or the triple to resolve.
type Request struct {
	Triple         chat.Triple
	ConversationID chat.ConversationID
}

// Resolver turns a (listing, guest, host) triple into a conversation id.
// Results are remembered for the lifetime of the Resolver only.
type Resolver struct {
	finder Finder
	logger *slog.Logger

	mu    sync.Mutex
	cache map[chat.Triple]chat.ConversationID
}

func New(finder Finder, logger *slog.Logger) *Resolver {
	return &Resolver{
		finder: finder,
		logger: logger,
		cache:  make(map[chat.Triple]chat.ConversationID),
	}
}

// Resolve trusts a supplied conversation id as-is and makes no call for it.
// Any network or server failure is reported wrapped in chat.ErrResolutionFailed.
func (r *Resolver) Resolve(ctx context.Context, req Request) (chat.ConversationID, error) {
	if id := chat.ConversationID(strings.TrimSpace(string(req.ConversationID))); id != "" {
		return id, nil
	}
	triple := req.Triple.Normalize()
	if err := triple.Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	id, ok := r.cache[triple]
	r.mu.Unlock()
	if ok {
		return id, nil
	}

	if r.finder == nil {
		return "", fmt.Errorf("%w: %w", chat.ErrResolutionFailed, errors.New("finder not configured"))
	}
	conv, err := r.finder.FindOrCreateConversation(ctx, triple)
	if err != nil {
		r.logError("find-or-create failed", err, triple)
		return "", fmt.Errorf("%w: %w", chat.ErrResolutionFailed, err)
	}
	id = chat.ConversationID(strings.TrimSpace(string(conv.ID)))
	if id == "" {
		err := errors.New("server returned empty conversation id")
		r.logError("find-or-create failed", err, triple)
		return "", fmt.Errorf("%w: %w", chat.ErrResolutionFailed, err)
	}

	r.mu.Lock()
	r.cache[triple] = id
	r.mu.Unlock()
	if r.logger != nil {
		r.logger.Debug("conversation resolved", "conversation_id", id, "listing_id", triple.ListingID)
	}
	return id, nil
}

func (r *Resolver) logError(msg string, err error, triple chat.Triple) {
	if r.logger != nil {
		r.logger.Error(msg, "error", err, "listing_id", triple.ListingID, "guest_id", triple.GuestID, "host_id", triple.HostID)
	}
}
