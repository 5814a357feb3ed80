package chat

import (
	"strings"
	"time"
)

type (
	ConversationID string
	ListingID      string
	UserID         string
	MessageID      string
)

// Triple identifies the single conversation allowed per listing, guest and host.
type Triple struct {
	ListingID ListingID
	GuestID   UserID
	HostID    UserID
}

// Normalize trims surrounding whitespace from every reference.
func (t Triple) Normalize() Triple {
	return Triple{
		ListingID: ListingID(strings.TrimSpace(string(t.ListingID))),
		GuestID:   UserID(strings.TrimSpace(string(t.GuestID))),
		HostID:    UserID(strings.TrimSpace(string(t.HostID))),
	}
}

// Validate reports ErrTripleIncomplete when any reference is blank.
func (t Triple) Validate() error {
	n := t.Normalize()
	if n.ListingID == "" || n.GuestID == "" || n.HostID == "" {
		return ErrTripleIncomplete
	}
	return nil
}

// Conversation is immutable once the server assigned its identifier.
type Conversation struct {
	ID        ConversationID
	ListingID ListingID
	GuestID   UserID
	HostID    UserID
	CreatedAt time.Time
}

func (c Conversation) Triple() Triple {
	return Triple{ListingID: c.ListingID, GuestID: c.GuestID, HostID: c.HostID}
}

// HasParticipant reports whether user is the guest or the host of the conversation.
func (c Conversation) HasParticipant(user UserID) bool {
	return user != "" && (user == c.GuestID || user == c.HostID)
}
