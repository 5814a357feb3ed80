package memory

import (
	"context"
	"sync"
	"time"

	"rentmechat/internal/domain/chat"
)

// ChatStore keeps conversations and messages in memory for local development.
type ChatStore struct {
	mu            sync.RWMutex
	conversations map[chat.ConversationID]chat.Conversation
	byTriple      map[chat.Triple]chat.ConversationID
	messages      map[chat.ConversationID][]chat.Message
}

// NewChatStore builds an empty store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		conversations: make(map[chat.ConversationID]chat.Conversation),
		byTriple:      make(map[chat.Triple]chat.ConversationID),
		messages:      make(map[chat.ConversationID][]chat.Message),
	}
}

// FindOrCreateConversation returns the existing conversation for triple or stores a new one under id.
func (s *ChatStore) FindOrCreateConversation(ctx context.Context, triple chat.Triple, id chat.ConversationID, now time.Time) (chat.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byTriple[triple]; ok {
		return s.conversations[existing], false, nil
	}
	conv := chat.Conversation{
		ID:        id,
		ListingID: triple.ListingID,
		GuestID:   triple.GuestID,
		HostID:    triple.HostID,
		CreatedAt: now,
	}
	s.conversations[id] = conv
	s.byTriple[triple] = id
	return conv, true, nil
}

// Conversation returns chat.ErrConversationNotFound for unknown ids.
func (s *ChatStore) Conversation(ctx context.Context, id chat.ConversationID) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return chat.Conversation{}, chat.ErrConversationNotFound
	}
	return conv, nil
}

// AddMessage appends msg to its conversation.
func (s *ChatStore) AddMessage(ctx context.Context, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return chat.ErrConversationNotFound
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	return nil
}

// ListMessages returns a copy in insertion order.
func (s *ChatStore) ListMessages(ctx context.Context, id chat.ConversationID) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.conversations[id]; !ok {
		return nil, chat.ErrConversationNotFound
	}
	out := make([]chat.Message, len(s.messages[id]))
	copy(out, s.messages[id])
	return out, nil
}
