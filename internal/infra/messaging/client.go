package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rentmechat/internal/app/composer"
	"rentmechat/internal/app/dto"
	"rentmechat/internal/domain/chat"
)

// Config defines REST client settings.
type Config struct {
	BaseURL     string
	CallTimeout time.Duration
}

// Client talks to the chat REST API: find-or-create, list and send.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	callTimeout time.Duration
	logger      *slog.Logger
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("messaging: %s %s returned %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("messaging: %s %s returned %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// NewClient validates cfg and returns a client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("messaging: base url required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("messaging: invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("messaging: unsupported scheme %q", base.Scheme)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}
	return &Client{
		baseURL:     base,
		http:        httpClient,
		callTimeout: callTimeout,
		logger:      logger,
	}, nil
}

// FindOrCreateConversation returns the conversation for a triple, creating it server-side if absent.
func (c *Client) FindOrCreateConversation(ctx context.Context, triple chat.Triple) (chat.Conversation, error) {
	req := dto.FindOrCreateConversationRequest{
		ListingID: string(triple.ListingID),
		GuestID:   string(triple.GuestID),
		HostID:    string(triple.HostID),
	}
	var resp dto.Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations/find-or-create", req, &resp); err != nil {
		return chat.Conversation{}, err
	}
	return mapConversation(resp), nil
}

// ListMessages returns every message of a conversation in server order.
func (c *Client) ListMessages(ctx context.Context, id chat.ConversationID) ([]chat.Message, error) {
	var resp []dto.ChatMessage
	path := "/messages/conversation/" + url.PathEscape(string(id))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	items := make([]chat.Message, 0, len(resp))
	for _, msg := range resp {
		items = append(items, mapMessage(msg, id))
	}
	return items, nil
}

// SendMessage persists a message. The response body is ignored: it carries no client id.
func (c *Client) SendMessage(ctx context.Context, msg composer.Outgoing) error {
	req := dto.SendMessageRequest{
		ConversationID: string(msg.ConversationID),
		SenderID:       string(msg.SenderID),
		Body:           msg.Body,
	}
	return c.do(ctx, http.MethodPost, "/messages", req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	callCtx, cancel := c.wrapCall(ctx)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("messaging: encode %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			err = fmt.Errorf("messaging: %s %s timed out: %w", method, path, err)
		} else {
			err = fmt.Errorf("messaging: %s %s failed: %w", method, path, err)
		}
		c.logError("request failed", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: errorText(snippet)}
		c.logError("request returned error", err)
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		err = fmt.Errorf("messaging: decode %s: %w", path, err)
		c.logError("response decode failed", err)
		return err
	}
	return nil
}

func (c *Client) wrapCall(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *Client) logError(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "error", err)
	}
}

// errorText prefers the {"error": "..."} field and falls back to the raw snippet.
func errorText(snippet []byte) string {
	var body dto.Error
	if err := json.Unmarshal(snippet, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(snippet))
}

func mapConversation(conv dto.Conversation) chat.Conversation {
	return chat.Conversation{
		ID:        chat.ConversationID(conv.ID),
		ListingID: chat.ListingID(conv.ListingID),
		GuestID:   chat.UserID(conv.GuestID),
		HostID:    chat.UserID(conv.HostID),
		CreatedAt: conv.CreatedAt,
	}
}

func mapMessage(msg dto.ChatMessage, conversationID chat.ConversationID) chat.Message {
	if msg.ConversationID != "" {
		conversationID = chat.ConversationID(msg.ConversationID)
	}
	return chat.Message{
		ID:             chat.MessageID(msg.ID),
		ConversationID: conversationID,
		SenderID:       chat.UserID(msg.SenderID),
		Body:           msg.Body,
		SentAt:         msg.SentAt,
		Status:         chat.StatusConfirmed,
	}
}
