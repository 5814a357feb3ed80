package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentmechat/internal/domain/chat"
)

// memQueue is a Store and Queue over a slice.
type memQueue struct {
	records []EventRecord
	state   map[string]string
	next    map[string]time.Time
	claimed []string
}

func newMemQueue() *memQueue {
	return &memQueue{state: map[string]string{}, next: map[string]time.Time{}}
}

func (q *memQueue) Add(ctx context.Context, rec EventRecord) error {
	q.records = append(q.records, rec)
	q.state[rec.ID] = "new"
	return nil
}

func (q *memQueue) Claim(ctx context.Context, workerID string) (*EventRecord, error) {
	for i := range q.records {
		rec := q.records[i]
		if q.state[rec.ID] == "new" {
			q.state[rec.ID] = "claimed"
			q.claimed = append(q.claimed, rec.ID)
			return &rec, nil
		}
	}
	return nil, nil
}

func (q *memQueue) MarkSent(ctx context.Context, id string) error {
	q.state[id] = "sent"
	return nil
}

func (q *memQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	q.state[id] = "failed"
	q.next[id] = next
	return nil
}

type sinkFunc func(ctx context.Context, rec EventRecord) error

func (f sinkFunc) PublishRecord(ctx context.Context, rec EventRecord) error { return f(ctx, rec) }

var at = time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)

func TestRecorderEncodesEvents(t *testing.T) {
	q := newMemQueue()
	n := 0
	rec := Recorder{Store: q, NewID: func() string { n++; return "evt-" + strconv.Itoa(n) }}

	err := rec.Publish(context.Background(),
		chat.MessageSentEvent{MessageID: "m1", ConversationID: "conv-1", SenderID: "g", Body: "Hi", At: at},
		nil,
	)
	require.NoError(t, err)
	require.Len(t, q.records, 1)

	got := q.records[0]
	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, "message.sent", got.Name)
	assert.Equal(t, "conv-1", got.Aggregate)
	assert.True(t, got.OccurredAt.Equal(at))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, "Hi", payload["body"])

	require.Error(t, Recorder{}.Publish(context.Background(), chat.MessageSentEvent{}))
}

func TestRelayDeliversAndReschedules(t *testing.T) {
	q := newMemQueue()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Add(context.Background(), EventRecord{ID: id, Name: "message.sent"}))
	}
	var delivered []string
	sink := sinkFunc(func(ctx context.Context, rec EventRecord) error {
		if rec.ID == "b" {
			return errors.New("broker down")
		}
		delivered = append(delivered, rec.ID)
		return nil
	})
	relay := &Relay{Queue: q, Sink: sink, Backoff: time.Minute, Now: func() time.Time { return at }}

	relay.Drain(context.Background())

	assert.Equal(t, []string{"a", "c"}, delivered)
	assert.Equal(t, "sent", q.state["a"])
	assert.Equal(t, "failed", q.state["b"])
	assert.True(t, q.next["b"].Equal(at.Add(time.Minute)))
	assert.Equal(t, "sent", q.state["c"])
}

func TestRelayRespectsBatchSize(t *testing.T) {
	q := newMemQueue()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Add(context.Background(), EventRecord{ID: id}))
	}
	relay := &Relay{Queue: q, Sink: sinkFunc(func(context.Context, EventRecord) error { return nil }), BatchSize: 2}

	relay.Drain(context.Background())
	assert.Equal(t, []string{"a", "b"}, q.claimed)

	relay.Drain(context.Background())
	assert.Equal(t, []string{"a", "b", "c"}, q.claimed)
}
