// Package chatview runs one listing chat panel: it checks access, resolves the
// conversation, starts polling and exposes a render-ready snapshot.
package chatview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"rentmechat/internal/app/access"
	"rentmechat/internal/app/chatsync"
	"rentmechat/internal/app/composer"
	"rentmechat/internal/app/resolver"
	"rentmechat/internal/app/schedule"
	"rentmechat/internal/app/transcript"
	"rentmechat/internal/domain/chat"
)

type Phase string

const (
	PhaseDenied  Phase = "denied"
	PhaseLoading Phase = "loading"
	PhaseFailed  Phase = "failed"
	PhaseEmpty   Phase = "empty"
	PhaseReady   Phase = "ready"
	PhaseClosed  Phase = "closed"
)

const (
	textConversationFailed = "Failed to load conversation."
	textMessagesFailed     = "Failed to load messages."
	textEmpty              = "No messages yet. Say hello!"
)

// Params identify the viewer and the listing whose host they want to reach.
// ConversationID, when known, skips resolution.
type Params struct {
	ViewerID       chat.UserID
	ListingID      chat.ListingID
	HostID         chat.UserID
	ConversationID chat.ConversationID
	AllowHostChat  bool
}

type Deps struct {
	Resolver *resolver.Resolver
	Fetcher  chatsync.Fetcher
	Sender   composer.Sender
	Logger   *slog.Logger
	Location *time.Location

	Trigger      schedule.Trigger
	PollInterval time.Duration
	Now          func() time.Time
	NewID        func() chat.MessageID
}

// Snapshot is everything needed to draw the panel once.
type Snapshot struct {
	Phase          Phase
	Title          string
	Detail         string
	ConversationID chat.ConversationID
	Entries        []transcript.Entry
	Unsent         int
}

// View is safe for concurrent use. Listeners registered with OnChange never
// run after Close returns and must not call Close themselves.
type View struct {
	params   Params
	deps     Deps
	decision access.Decision

	mu         sync.Mutex
	started    bool
	closed     bool
	cancel     context.CancelFunc
	resolveErr error
	syncer     *chatsync.Synchronizer
	composer   *composer.Composer
	listeners  map[int]func()
	nextKey    int
	ready      chan struct{}

	notifyMu sync.Mutex
}

// New evaluates access immediately; nothing touches the network until Start.
func New(params Params, deps Deps) *View {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return &View{
		params:    params,
		deps:      deps,
		decision:  access.CanChat(params.ViewerID, params.HostID, params.AllowHostChat),
		listeners: make(map[int]func()),
		ready:     make(chan struct{}),
	}
}

// Decision is the access outcome computed by New.
func (v *View) Decision() access.Decision {
	return v.decision
}

// Start resolves the conversation in the background and then begins polling.
// A denied view never resolves or polls.
func (v *View) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.closed:
		return chat.ErrTornDown
	case v.started:
		return errors.New("chatview: already started")
	}
	v.started = true
	if !v.decision.Allowed() {
		close(v.ready)
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	go v.run(runCtx)
	return nil
}

func (v *View) run(ctx context.Context) {
	defer close(v.ready)

	id, err := v.resolve(ctx)
	if err != nil {
		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			return
		}
		v.resolveErr = err
		v.mu.Unlock()
		v.logWarn("conversation resolution failed", "listing_id", v.params.ListingID, "error", err)
		v.notify()
		return
	}

	s := chatsync.New(v.deps.Fetcher, chatsync.Options{
		Trigger:  v.deps.Trigger,
		Interval: v.deps.PollInterval,
		Logger:   v.deps.Logger,
	})
	c := composer.New(v.deps.Sender, s, composer.Options{
		Viewer:         v.params.ViewerID,
		ConversationID: id,
		Logger:         v.deps.Logger,
		Now:            v.deps.Now,
		NewID:          v.deps.NewID,
	})
	s.OnChange(v.notify)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		s.Close()
		return
	}
	v.syncer, v.composer = s, c
	v.mu.Unlock()

	if err := s.Start(ctx, id); err != nil {
		v.mu.Lock()
		v.resolveErr = err
		v.mu.Unlock()
		v.logWarn("message sync not started", "conversation_id", id, "error", err)
		v.notify()
	}
}

func (v *View) resolve(ctx context.Context) (chat.ConversationID, error) {
	r := v.deps.Resolver
	if r == nil {
		r = resolver.New(nil, v.deps.Logger)
	}
	return r.Resolve(ctx, resolver.Request{
		ConversationID: v.params.ConversationID,
		Triple: chat.Triple{
			ListingID: v.params.ListingID,
			GuestID:   v.params.ViewerID,
			HostID:    v.params.HostID,
		},
	})
}

// Ready is closed once resolution has settled and polling, if any, has begun.
func (v *View) Ready() <-chan struct{} {
	return v.ready
}

// Snapshot derives the current panel state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	closed, resolveErr, s := v.closed, v.resolveErr, v.syncer
	v.mu.Unlock()

	switch {
	case closed:
		return Snapshot{Phase: PhaseClosed}
	case !v.decision.Allowed():
		title, detail := v.decision.Reason()
		return Snapshot{Phase: PhaseDenied, Title: title, Detail: detail}
	case resolveErr != nil:
		return Snapshot{Phase: PhaseFailed, Title: textConversationFailed}
	case s == nil:
		return Snapshot{Phase: PhaseLoading}
	}

	msgs := s.Messages()
	snap := Snapshot{
		ConversationID: s.ConversationID(),
		Entries:        transcript.Present(msgs, v.params.ViewerID, v.deps.Location),
	}
	for _, e := range snap.Entries {
		if e.Unsent {
			snap.Unsent++
		}
	}
	loaded := s.Loaded()
	switch {
	case s.State() == chatsync.StateError && !loaded:
		snap.Phase, snap.Title = PhaseFailed, textMessagesFailed
	case len(msgs) > 0:
		snap.Phase = PhaseReady
	case !loaded:
		snap.Phase = PhaseLoading
	default:
		snap.Phase, snap.Title = PhaseEmpty, textEmpty
	}
	return snap
}

// Send composes a message. It fails with chat.ErrNoConversation until the
// conversation is resolved.
func (v *View) Send(ctx context.Context, text string) (chat.Message, error) {
	c, err := v.activeComposer()
	if err != nil {
		return chat.Message{}, err
	}
	return c.Send(ctx, text)
}

// RetryUnsent re-sends every entry whose earlier send failed.
func (v *View) RetryUnsent(ctx context.Context) error {
	c, err := v.activeComposer()
	if err != nil {
		return err
	}
	return c.RetryUnsent(ctx)
}

func (v *View) activeComposer() (*composer.Composer, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.closed:
		return nil, chat.ErrTornDown
	case v.composer == nil:
		return nil, chat.ErrNoConversation
	}
	return v.composer, nil
}

// OnChange registers fn to run after every visible change.
func (v *View) OnChange(fn func()) (unsubscribe func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return func() {}
	}
	key := v.nextKey
	v.nextKey++
	v.listeners[key] = fn
	return func() {
		v.mu.Lock()
		delete(v.listeners, key)
		v.mu.Unlock()
	}
}

func (v *View) notify() {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	fns := make([]func(), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Close tears the view down. Requests still in flight are discarded.
func (v *View) Close() {
	v.notifyMu.Lock()
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		v.notifyMu.Unlock()
		return
	}
	v.closed = true
	v.listeners = map[int]func(){}
	cancel, s := v.cancel, v.syncer
	v.mu.Unlock()
	v.notifyMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s != nil {
		s.Close()
	}
}

func (v *View) logWarn(msg string, attrs ...any) {
	if v.deps.Logger != nil {
		v.deps.Logger.Warn(msg, attrs...)
	}
}
