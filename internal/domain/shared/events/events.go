package events

import "time"

// DomainEvent is anything that happened to an aggregate and may be published.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}
