package policies

import (
	"context"

	"rentmechat/internal/domain/shared/events"
)

// EventPublisher announces chat domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, evs ...events.DomainEvent) error
}
