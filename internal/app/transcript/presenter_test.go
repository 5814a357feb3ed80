package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentmechat/internal/domain/chat"
)

func at(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		panic(err)
	}
	return t
}

func separators(entries []Entry) []bool {
	out := make([]bool, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.FirstOfDay)
	}
	return out
}

func TestDaySeparatorUsesViewerTimezone(t *testing.T) {
	msgs := []chat.Message{
		{ID: "m1", SenderID: "host", Body: "late", SentAt: at("2024-01-01T23:59:00Z")},
		{ID: "m2", SenderID: "host", Body: "early", SentAt: at("2024-01-02T00:01:00Z")},
	}

	utc := Present(msgs, "guest", time.UTC)
	assert.Equal(t, []bool{true, true}, separators(utc))

	minus5 := time.FixedZone("UTC-5", -5*60*60)
	shifted := Present(msgs, "guest", minus5)
	assert.Equal(t, []bool{true, false}, separators(shifted))
	assert.Equal(t, "Monday, January 1, 2024", DayLabel(msgs[1].SentAt, minus5))

	// 04:59Z and 05:01Z straddle midnight only in UTC-5.
	straddle := []chat.Message{
		{ID: "m1", SenderID: "host", Body: "a", SentAt: at("2024-01-02T04:59:00Z")},
		{ID: "m2", SenderID: "host", Body: "b", SentAt: at("2024-01-02T05:01:00Z")},
	}
	assert.Equal(t, []bool{true, false}, separators(Present(straddle, "guest", time.UTC)))
	assert.Equal(t, []bool{true, true}, separators(Present(straddle, "guest", minus5)))
}

func TestPresentMarksOwnershipAndStatus(t *testing.T) {
	base := at("2024-06-01T10:00:00Z")
	msgs := []chat.Message{
		{ID: "m1", SenderID: "host", Body: "hello", SentAt: base, Status: chat.StatusConfirmed},
		{ID: "local-1", SenderID: "guest", Body: "Hi", SentAt: base.Add(time.Minute), Status: chat.StatusPending},
		{ID: "local-2", SenderID: "guest", Body: "there?", SentAt: base.Add(2 * time.Minute), Status: chat.StatusFailed},
	}

	entries := Present(msgs, "guest", time.UTC)
	require.Len(t, entries, 3)
	assert.False(t, entries[0].Mine)
	assert.True(t, entries[1].Mine)
	assert.True(t, entries[1].Pending)
	assert.True(t, entries[2].Unsent)
	assert.False(t, entries[2].Pending)
	assert.Equal(t, []bool{true, false, false}, separators(entries))

	anonymous := Present(msgs, "", time.UTC)
	for _, e := range anonymous {
		assert.False(t, e.Mine)
	}
}

func TestPresentIsDeterministic(t *testing.T) {
	msgs := []chat.Message{
		{ID: "m1", SenderID: "host", Body: "a", SentAt: at("2024-01-01T08:00:00Z")},
		{ID: "m2", SenderID: "guest", Body: "b", SentAt: at("2024-01-03T08:00:00Z")},
	}
	first := Present(msgs, "guest", time.UTC)
	second := Present(msgs, "guest", time.UTC)
	assert.Equal(t, first, second)
	assert.Empty(t, Present(nil, "guest", time.UTC))
}

func TestWriteRendersSeparatorsAndMarkers(t *testing.T) {
	base := at("2024-01-01T09:30:00Z")
	entries := Present([]chat.Message{
		{ID: "m1", SenderID: "host", Body: "Welcome", SentAt: base},
		{ID: "local-1", SenderID: "guest", Body: "Thanks", SentAt: base.Add(time.Minute), Status: chat.StatusFailed},
	}, "guest", time.UTC)

	var b strings.Builder
	require.NoError(t, Write(&b, entries, time.UTC))
	out := b.String()

	assert.Equal(t, 1, strings.Count(out, "-- Monday, January 1, 2024 --"))
	assert.Contains(t, out, "Welcome [09:30]")
	assert.Contains(t, out, "Thanks (not sent) [09:31]")
	assert.Equal(t, "09:31", TimeLabel(base.Add(time.Minute), time.UTC))
}
