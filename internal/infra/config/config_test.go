package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientDefaults(t *testing.T) {
	t.Setenv("CHAT_LISTING_ID", "listing-1")
	t.Setenv("CHAT_HOST_ID", "host-1")
	t.Setenv("CHAT_VIEWER_ID", " guest-1 ")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
	assert.Equal(t, "guest-1", cfg.ViewerID)
	assert.False(t, cfg.AllowHostChat)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Local, cfg.Location)
}

func TestLoadClientOverrides(t *testing.T) {
	t.Setenv("CHAT_CONVERSATION_ID", "conv-1")
	t.Setenv("CHAT_ALLOW_HOST", "yes")
	t.Setenv("CHAT_HTTP_TIMEOUT", "750ms")
	t.Setenv("CHAT_TZ", "UTC")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "conv-1", cfg.ConversationID)
	assert.True(t, cfg.AllowHostChat)
	assert.Equal(t, 750*time.Millisecond, cfg.HTTPTimeout)
	assert.Equal(t, "UTC", cfg.Location.String())
}

func TestLoadClientErrors(t *testing.T) {
	_, err := LoadClient()
	require.Error(t, err)

	t.Setenv("CHAT_CONVERSATION_ID", "conv-1")
	t.Setenv("CHAT_ALLOW_HOST", "maybe")
	_, err = LoadClient()
	require.ErrorContains(t, err, "CHAT_ALLOW_HOST")

	t.Setenv("CHAT_ALLOW_HOST", "")
	t.Setenv("CHAT_HTTP_TIMEOUT", "soon")
	_, err = LoadClient()
	require.ErrorContains(t, err, "CHAT_HTTP_TIMEOUT")

	t.Setenv("CHAT_HTTP_TIMEOUT", "")
	t.Setenv("CHAT_TZ", "Mars/Olympus")
	_, err = LoadClient()
	require.ErrorContains(t, err, "CHAT_TZ")
}

func TestLoadStub(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	cfg, err := LoadStub()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.OutboxInterval)

	t.Setenv("CHAT_STORE", "mongo")
	_, err = LoadStub()
	require.ErrorContains(t, err, "MONGO_URI")

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	cfg, err = LoadStub()
	require.NoError(t, err)
	assert.Equal(t, "rentme_chat", cfg.MongoDB)

	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")
	_, err = LoadStub()
	require.ErrorContains(t, err, "OUTBOX_POLL_INTERVAL")
	t.Setenv("OUTBOX_POLL_INTERVAL", "")

	t.Setenv("CHAT_STORE", "redis")
	_, err = LoadStub()
	require.Error(t, err)
}
