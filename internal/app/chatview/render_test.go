package chatview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentmechat/internal/app/transcript"
)

func render(t *testing.T, snap Snapshot) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, Render(&b, snap, time.UTC))
	return b.String()
}

func TestRenderStates(t *testing.T) {
	assert.Equal(t, "Loading…\n", render(t, Snapshot{Phase: PhaseLoading}))
	assert.Equal(t, "No messages yet. Say hello!\n", render(t, Snapshot{Phase: PhaseEmpty, Title: textEmpty}))
	assert.Equal(t, "This is your listing\nYou can't message yourself\n",
		render(t, Snapshot{Phase: PhaseDenied, Title: "This is your listing", Detail: "You can't message yourself"}))
}

func TestRenderReadyWithUnsent(t *testing.T) {
	at := time.Date(2024, 1, 1, 15, 4, 0, 0, time.UTC)
	out := render(t, Snapshot{
		Phase: PhaseReady,
		Entries: []transcript.Entry{
			{ID: "m1", SenderID: "host-1", Body: "Welcome", SentAt: at, FirstOfDay: true},
			{ID: "local-1", SenderID: "guest-1", Body: "Thanks", SentAt: at, Mine: true, Unsent: true},
		},
		Unsent: 1,
	})

	assert.Contains(t, out, "-- Monday, January 1, 2024 --")
	assert.Contains(t, out, "Welcome [15:04]")
	assert.Contains(t, out, "Thanks (not sent) [15:04]")
	assert.True(t, strings.HasSuffix(out, "1 message(s) not sent. Type /retry to send again.\n"))
}
