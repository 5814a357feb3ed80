package policies

import (
	"context"
	"time"

	"rentmechat/internal/domain/chat"
)

// ChatStore persists conversations and messages behind the REST contract stub.
type ChatStore interface {
	// FindOrCreateConversation is idempotent per triple; created reports whether this call inserted it.
	FindOrCreateConversation(ctx context.Context, triple chat.Triple, conversationID chat.ConversationID, now time.Time) (conv chat.Conversation, created bool, err error)
	Conversation(ctx context.Context, id chat.ConversationID) (chat.Conversation, error)
	AddMessage(ctx context.Context, msg chat.Message) error
	ListMessages(ctx context.Context, id chat.ConversationID) ([]chat.Message, error)
}
