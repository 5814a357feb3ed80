package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentmechat/internal/app/composer"
	"rentmechat/internal/domain/chat"
	ginserver "rentmechat/internal/infra/http/gin"
	"rentmechat/internal/infra/obs"
	"rentmechat/internal/infra/storage/memory"
)

func newStubServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := &ginserver.ChatHandler{Store: memory.NewChatStore()}
	srv := httptest.NewServer(ginserver.NewRouter("test", obs.Middleware{}, obs.HealthHandlers{}, handler))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL, CallTimeout: time.Second}, nil, nil)
	require.NoError(t, err)
	return c
}

func TestClientRoundTrip(t *testing.T) {
	srv := newStubServer(t)
	c := newTestClient(t, srv.URL+"/api/")
	ctx := context.Background()

	triple := chat.Triple{ListingID: "listing-1", GuestID: "guest-1", HostID: "host-1"}
	conv, err := c.FindOrCreateConversation(ctx, triple)
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)
	assert.Equal(t, triple, conv.Triple())

	again, err := c.FindOrCreateConversation(ctx, triple)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)

	require.NoError(t, c.SendMessage(ctx, composer.Outgoing{ConversationID: conv.ID, SenderID: "guest-1", Body: "Hi"}))

	msgs, err := c.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hi", msgs[0].Body)
	assert.Equal(t, chat.UserID("guest-1"), msgs[0].SenderID)
	assert.Equal(t, conv.ID, msgs[0].ConversationID)
	assert.Equal(t, chat.StatusConfirmed, msgs[0].Status)
}

func TestClientSurfacesStatusErrors(t *testing.T) {
	srv := newStubServer(t)
	c := newTestClient(t, srv.URL+"/api")

	_, err := c.ListMessages(context.Background(), "missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, "conversation not found", statusErr.Body)

	err = c.SendMessage(context.Background(), composer.Outgoing{ConversationID: "missing", SenderID: "guest-1", Body: "Hi"})
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestClientTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, CallTimeout: 20 * time.Millisecond}, nil, nil)
	require.NoError(t, err)

	_, err = c.ListMessages(context.Background(), "conv-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, nil, nil)
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "ftp://example.com"}, nil, nil)
	require.Error(t, err)

	c, err := NewClient(Config{BaseURL: "https://example.com/api/"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api", c.baseURL.String())
}
