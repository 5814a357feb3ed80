package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentmechat/internal/app/outbox"
	"rentmechat/internal/domain/shared/events"
)

// RecordProducer is satisfied by Producer.
type RecordProducer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// EventPublisher wraps domain events in CloudEvents envelopes and routes them
// to "<prefix><aggregate>.events.v1" topics keyed by aggregate id.
type EventPublisher struct {
	Producer    RecordProducer
	TopicPrefix string
	Source      string
	Logger      *slog.Logger
}

// Publish is a no-op without a producer. It attempts every event and joins the failures.
func (p *EventPublisher) Publish(ctx context.Context, evs ...events.DomainEvent) error {
	if p == nil || p.Producer == nil {
		return nil
	}
	var errs []error
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		payload, err := p.envelope(ev.EventName(), ev.AggregateID(), ev.OccurredAt(), ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.send(ctx, ev.EventName(), ev.AggregateID(), payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishRecord delivers an event already encoded by the outbox.
func (p *EventPublisher) PublishRecord(ctx context.Context, rec outbox.EventRecord) error {
	if p == nil || p.Producer == nil {
		return errors.New("kafka: producer not configured")
	}
	payload, err := p.envelope(rec.Name, rec.Aggregate, rec.OccurredAt, json.RawMessage(rec.Payload))
	if err != nil {
		return err
	}
	return p.send(ctx, rec.Name, rec.Aggregate, payload)
}

func (p *EventPublisher) send(ctx context.Context, name, aggregate string, payload []byte) error {
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	if err := p.Producer.Publish(ctx, p.topicFor(name), aggregate, payload, headers); err != nil {
		if p.Logger != nil {
			p.Logger.Warn("event publish failed", "event", name, "aggregate", aggregate, "error", err)
		}
		return err
	}
	return nil
}

func (p *EventPublisher) envelope(name, subject string, at time.Time, data any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            name + ".v1",
		"source":          p.source(),
		"subject":         subject,
		"time":            at,
		"datacontenttype": "application/json",
		"data":            data,
	})
}

func (p *EventPublisher) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return p.TopicPrefix + base + ".events.v1"
}

func (p *EventPublisher) source() string {
	if p.Source != "" {
		return p.Source
	}
	return "app://rentme-chat"
}
