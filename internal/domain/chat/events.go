package chat

import "time"

type ConversationCreatedEvent struct {
	ConversationID ConversationID `json:"conversation_id"`
	ListingID      ListingID      `json:"listing_id"`
	GuestID        UserID         `json:"guest_id"`
	HostID         UserID         `json:"host_id"`
	At             time.Time      `json:"at"`
}

func (e ConversationCreatedEvent) EventName() string     { return "conversation.created" }
func (e ConversationCreatedEvent) AggregateID() string   { return string(e.ConversationID) }
func (e ConversationCreatedEvent) OccurredAt() time.Time { return e.At }

type MessageSentEvent struct {
	MessageID      MessageID      `json:"message_id"`
	ConversationID ConversationID `json:"conversation_id"`
	SenderID       UserID         `json:"sender_id"`
	Body           string         `json:"body"`
	At             time.Time      `json:"at"`
}

func (e MessageSentEvent) EventName() string     { return "message.sent" }
func (e MessageSentEvent) AggregateID() string   { return string(e.ConversationID) }
func (e MessageSentEvent) OccurredAt() time.Time { return e.At }
