// Package chatsync owns a conversation's message log and keeps it in step with
// the server by polling.
package chatsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rentmechat/internal/app/schedule"
	"rentmechat/internal/domain/chat"
)

// DefaultPollInterval is the fixed delay between the end of one fetch and the next.
const DefaultPollInterval = 3 * time.Second

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateActive        State = "active"
	StateError         State = "error"
	StateTornDown      State = "torn_down"
)

// Fetcher returns the full message set of a conversation, in any order.
type Fetcher interface {
	ListMessages(ctx context.Context, id chat.ConversationID) ([]chat.Message, error)
}

type Options struct {
	// Trigger overrides the poll schedule; Interval is used when it is nil.
	Trigger  schedule.Trigger
	Interval time.Duration
	Logger   *slog.Logger
}

// Synchronizer serializes every log mutation behind one mutex. Fetches never
// overlap; sends may complete on either side of a fetch.
type Synchronizer struct {
	fetcher Fetcher
	trigger schedule.Trigger
	logger  *slog.Logger

	mu             sync.Mutex
	state          State
	conversationID chat.ConversationID
	log            *chat.Log
	loaded         bool
	lastErr        error
	handle         *schedule.Handle
	listeners      map[int]func()
	nextListener   int

	// notifyMu is held while listeners run and during Close.
	notifyMu sync.Mutex
}

func New(fetcher Fetcher, opts Options) *Synchronizer {
	trigger := opts.Trigger
	if trigger == nil {
		every := opts.Interval
		if every <= 0 {
			every = DefaultPollInterval
		}
		trigger = schedule.Interval{Every: every}
	}
	return &Synchronizer{
		fetcher:   fetcher,
		trigger:   trigger,
		logger:    opts.Logger,
		state:     StateUninitialized,
		log:       chat.NewLog(),
		listeners: make(map[int]func()),
	}
}

// Start binds the Synchronizer to a resolved conversation and begins polling.
// It may be called once.
func (s *Synchronizer) Start(ctx context.Context, id chat.ConversationID) error {
	if id == "" {
		return chat.ErrNoConversation
	}
	if s.fetcher == nil {
		return errors.New("chatsync: fetcher not configured")
	}
	s.mu.Lock()
	switch s.state {
	case StateTornDown:
		s.mu.Unlock()
		return chat.ErrTornDown
	case StateUninitialized:
	default:
		s.mu.Unlock()
		return fmt.Errorf("chatsync: already started for %s", s.conversationID)
	}
	s.conversationID = id
	s.setStateLocked(StateLoading)
	s.handle = schedule.Start(ctx, s.trigger, s.poll)
	s.mu.Unlock()
	s.notify()
	return nil
}

// poll is one merge cycle: fetch, then replace confirmed entries and reconcile.
func (s *Synchronizer) poll(ctx context.Context) {
	s.mu.Lock()
	id := s.conversationID
	s.mu.Unlock()

	msgs, err := s.fetcher.ListMessages(ctx, id)

	s.mu.Lock()
	if s.state == StateTornDown || ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.lastErr = fmt.Errorf("%w: %w", chat.ErrFetchFailed, err)
		s.setStateLocked(StateError)
		first := !s.loaded
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Warn("message fetch failed", "conversation_id", id, "first_fetch", first, "error", err)
		}
		s.notify()
		return
	}
	removed := s.log.ReplaceConfirmed(msgs)
	s.loaded = true
	s.lastErr = nil
	s.setStateLocked(StateActive)
	s.mu.Unlock()
	if s.logger != nil && len(removed) > 0 {
		s.logger.Debug("provisional messages reconciled", "conversation_id", id, "count", len(removed))
	}
	s.notify()
}

func (s *Synchronizer) setStateLocked(next State) {
	if s.state == next {
		return
	}
	if s.logger != nil {
		s.logger.Debug("sync state changed", "conversation_id", s.conversationID, "from", s.state, "state", next)
	}
	s.state = next
}

// AppendProvisional adds a locally composed entry to the log.
func (s *Synchronizer) AppendProvisional(m chat.Message) error {
	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return chat.ErrTornDown
	}
	s.log.AppendProvisional(m)
	s.mu.Unlock()
	s.notify()
	return nil
}

// MarkFailed flags a provisional entry as unsent. Unknown ids are ignored,
// since a confirmed copy may already have retired the entry.
func (s *Synchronizer) MarkFailed(id chat.MessageID) {
	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return
	}
	changed := s.log.MarkFailed(id)
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// MarkPending puts an unsent entry back in flight.
func (s *Synchronizer) MarkPending(id chat.MessageID, at time.Time) (chat.Message, error) {
	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return chat.Message{}, chat.ErrTornDown
	}
	current, ok := s.log.Provisional(id)
	if !ok || current.Status != chat.StatusFailed {
		s.mu.Unlock()
		return chat.Message{}, chat.ErrNotRetryable
	}
	m, _ := s.log.MarkPending(id, at)
	s.mu.Unlock()
	s.notify()
	return m, nil
}

// Unsent lists provisional entries whose send failed.
func (s *Synchronizer) Unsent() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Unsent()
}

// Messages returns a snapshot of the merged log sorted by sent-at.
func (s *Synchronizer) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Messages()
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loaded reports whether any fetch has succeeded yet.
func (s *Synchronizer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Err returns the last fetch failure, or nil after a successful fetch.
func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Synchronizer) ConversationID() chat.ConversationID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// OnChange registers fn to run after every log or state change. Listeners run
// outside the log lock and must not call Close.
func (s *Synchronizer) OnChange(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTornDown {
		return func() {}
	}
	key := s.nextListener
	s.nextListener++
	s.listeners[key] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, key)
		s.mu.Unlock()
	}
}

func (s *Synchronizer) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return
	}
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Close cancels the poll schedule. A fetch still in flight is discarded when it
// settles, and no listener runs after Close returns.
func (s *Synchronizer) Close() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateTornDown)
	handle := s.handle
	s.listeners = map[int]func(){}
	s.mu.Unlock()

	handle.Stop()
}

// Done is closed once the poll goroutine has exited. It is nil before Start.
func (s *Synchronizer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil
	}
	return s.handle.Done()
}
