package dto

import "time"

// FindOrCreateConversationRequest is the body of POST /conversations/find-or-create.
type FindOrCreateConversationRequest struct {
	ListingID string `json:"listing_id"`
	GuestID   string `json:"guest_id"`
	HostID    string `json:"host_id"`
}

// Conversation describes a listing thread between one guest and one host.
type Conversation struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	GuestID   string    `json:"guest_id"`
	HostID    string    `json:"host_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// SendMessageRequest is the body of POST /messages.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Body           string `json:"body"`
}

// ChatMessage is one element of GET /messages/conversation/{id}.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
}
