package schedule

import (
	"context"
	"time"
)

// Task is one unit of recurring work. It receives the context of the Trigger run
// and must return once that context is cancelled.
type Task func(ctx context.Context)

// Trigger drives a Task until ctx is cancelled. A timer satisfies it, and so
// could a push subscription invoking the task per notification.
type Trigger interface {
	Run(ctx context.Context, task Task) error
}

// Interval runs the task immediately, then again Every after each run settles.
// Runs never overlap.
type Interval struct {
	Every time.Duration
}

const defaultEvery = 3 * time.Second

func (i Interval) Run(ctx context.Context, task Task) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	task(ctx)
	timer := time.NewTimer(i.every())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			task(ctx)
			timer.Reset(i.every())
		}
	}
}

func (i Interval) every() time.Duration {
	if i.Every <= 0 {
		return defaultEvery
	}
	return i.Every
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func(ctx context.Context, task Task) error

func (f TriggerFunc) Run(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// Handle is a started Trigger that can be stopped.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs trigger in its own goroutine until Stop or parent cancellation.
func Start(parent context.Context, trigger Trigger, task Task) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		_ = trigger.Run(ctx, task)
	}()
	return h
}

// Stop cancels the run without waiting for an in-flight task.
func (h *Handle) Stop() {
	if h != nil {
		h.cancel()
	}
}

// Done is closed once the trigger goroutine has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
