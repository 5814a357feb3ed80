package chat

import (
	"sort"
	"strings"
	"time"
)

// Status tells confirmed messages apart from locally synthesized ones.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// Message is a single chat line. For provisional messages ID and SentAt are local values.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       UserID
	Body           string
	SentAt         time.Time
	Status         Status
}

// Provisional reports whether the message still awaits a confirmed counterpart.
func (m Message) Provisional() bool {
	return m.Status == StatusPending || m.Status == StatusFailed
}

// NormalizeBody trims the text the way both client and server compare it.
func NormalizeBody(body string) string {
	return strings.TrimSpace(body)
}

// Before orders by sent-at and breaks ties on the identifier.
func Before(a, b Message) bool {
	if !a.SentAt.Equal(b.SentAt) {
		return a.SentAt.Before(b.SentAt)
	}
	return a.ID < b.ID
}

// SortMessages sorts in place, non-decreasing by sent-at.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return Before(msgs[i], msgs[j]) })
}
