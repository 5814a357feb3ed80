// Package outbox stores domain events next to the data that produced them and
// relays them to the broker on a schedule.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rentmechat/internal/domain/shared/events"
)

type EventRecord struct {
	ID         string
	Name       string
	Aggregate  string
	Payload    []byte
	OccurredAt time.Time
}

// Store accepts records for later delivery.
type Store interface {
	Add(ctx context.Context, record EventRecord) error
}

// Queue is the delivery side of a Store. Claim returns nil when nothing is due.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*EventRecord, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// Sink delivers one record, typically to Kafka.
type Sink interface {
	PublishRecord(ctx context.Context, record EventRecord) error
}

func Encode(ev events.DomainEvent, id string) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("outbox: encode %s: %w", ev.EventName(), err)
	}
	return EventRecord{
		ID:         id,
		Name:       ev.EventName(),
		Aggregate:  ev.AggregateID(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
	}, nil
}

// Recorder publishes events by writing them to a Store.
type Recorder struct {
	Store Store
	NewID func() string
}

func (r Recorder) Publish(ctx context.Context, evs ...events.DomainEvent) error {
	if r.Store == nil {
		return errors.New("outbox: store not configured")
	}
	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		rec, err := Encode(ev, newID())
		if err != nil {
			return err
		}
		if err := r.Store.Add(ctx, rec); err != nil {
			return fmt.Errorf("outbox: add %s: %w", rec.Name, err)
		}
	}
	return nil
}

const (
	defaultBatchSize = 100
	defaultBackoff   = 30 * time.Second
)

// Relay moves due records from a Queue to a Sink. Drain matches schedule.Task.
type Relay struct {
	Queue     Queue
	Sink      Sink
	WorkerID  string
	BatchSize int
	Backoff   time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Drain delivers up to BatchSize records and stops early when the queue is empty.
// Failed deliveries are rescheduled after Backoff.
func (r *Relay) Drain(ctx context.Context) {
	batch := r.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	for i := 0; i < batch && ctx.Err() == nil; i++ {
		rec, err := r.Queue.Claim(ctx, r.workerID())
		if err != nil {
			r.warn("outbox claim failed", "error", err)
			return
		}
		if rec == nil {
			return
		}
		if err := r.Sink.PublishRecord(ctx, *rec); err != nil {
			r.warn("outbox delivery failed", "event_id", rec.ID, "event", rec.Name, "error", err)
			if markErr := r.Queue.MarkFailed(ctx, rec.ID, r.now().Add(r.backoff()), err.Error()); markErr != nil {
				r.warn("outbox reschedule failed", "event_id", rec.ID, "error", markErr)
			}
			continue
		}
		if err := r.Queue.MarkSent(ctx, rec.ID); err != nil {
			r.warn("outbox mark sent failed", "event_id", rec.ID, "error", err)
		}
	}
}

func (r *Relay) workerID() string {
	if r.WorkerID != "" {
		return r.WorkerID
	}
	return "relay"
}

func (r *Relay) backoff() time.Duration {
	if r.Backoff > 0 {
		return r.Backoff
	}
	return defaultBackoff
}

func (r *Relay) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Relay) warn(msg string, attrs ...any) {
	if r.Logger != nil {
		r.Logger.Warn(msg, attrs...)
	}
}
