package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentmechat/internal/app/dto"
	"rentmechat/internal/domain/chat"
	"rentmechat/internal/domain/shared/events"
	"rentmechat/internal/infra/obs"
	"rentmechat/internal/infra/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, evs ...events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.EventName())
	}
	return out
}

func newTestRouter(t *testing.T) (http.Handler, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	clock := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	n := 0
	handler := &ChatHandler{
		Store:  memory.NewChatStore(),
		Events: pub,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
	return NewRouter("test", obs.Middleware{}, obs.HealthHandlers{}, handler), pub
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func findOrCreate(t *testing.T, h http.Handler) dto.Conversation {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/conversations/find-or-create", dto.FindOrCreateConversationRequest{
		ListingID: "listing-1", GuestID: "guest-1", HostID: "host-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var conv dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	return conv
}

func TestFindOrCreateIsIdempotent(t *testing.T) {
	h, pub := newTestRouter(t)

	first := findOrCreate(t, h)
	second := findOrCreate(t, h)

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "guest-1", first.GuestID)
	assert.Equal(t, []string{chat.ConversationCreatedEvent{}.EventName()}, pub.names())
}

func TestFindOrCreateRejectsIncompleteTriple(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/conversations/find-or-create", dto.FindOrCreateConversationRequest{
		ListingID: "listing-1", GuestID: " ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/find-or-create", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendAndListMessages(t *testing.T) {
	h, pub := newTestRouter(t)
	conv := findOrCreate(t, h)

	for _, body := range []string{"Hi", " second "} {
		rec := doJSON(t, h, http.MethodPost, "/api/messages", dto.SendMessageRequest{
			ConversationID: conv.ID, SenderID: "guest-1", Body: body,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := doJSON(t, h, http.MethodPost, "/api/messages", dto.SendMessageRequest{
		ConversationID: conv.ID, SenderID: "host-1", Body: "welcome",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/messages/conversation/"+conv.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []dto.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 3)
	assert.Equal(t, "Hi", msgs[0].Body)
	assert.Equal(t, "second", msgs[1].Body)
	assert.Equal(t, "host-1", msgs[2].SenderID)
	assert.True(t, msgs[1].SentAt.After(msgs[0].SentAt))
	assert.Len(t, pub.names(), 4)
}

func TestSendMessageValidation(t *testing.T) {
	h, _ := newTestRouter(t)
	conv := findOrCreate(t, h)

	cases := []struct {
		name string
		req  dto.SendMessageRequest
		code int
	}{
		{name: "blank body", req: dto.SendMessageRequest{ConversationID: conv.ID, SenderID: "guest-1", Body: "  "}, code: http.StatusBadRequest},
		{name: "missing sender", req: dto.SendMessageRequest{ConversationID: conv.ID, Body: "Hi"}, code: http.StatusBadRequest},
		{name: "unknown conversation", req: dto.SendMessageRequest{ConversationID: "nope", SenderID: "guest-1", Body: "Hi"}, code: http.StatusNotFound},
		{name: "outsider", req: dto.SendMessageRequest{ConversationID: conv.ID, SenderID: "stranger", Body: "Hi"}, code: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/messages", tc.req)
			assert.Equal(t, tc.code, rec.Code)
			var body dto.Error
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestListMessagesUnknownConversation(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/api/messages/conversation/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestRouter(t)
	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/livez", nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/readyz", nil).Code)
}
