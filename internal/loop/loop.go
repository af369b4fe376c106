// Package loop runs every mutation of auto-code state on one goroutine.
// Network handlers, timers and cron jobs hand work to the loop instead of
// touching shared state themselves, so the core needs no locks.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned when work is submitted to a stopped loop.
var ErrStopped = errors.New("event loop stopped")

// Timer is a pending AfterFunc callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call prevented
	// the callback from running.
	Stop() bool
}

// Loop is a single-goroutine task queue.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
	log      *zap.Logger

	// deferred is only touched from the loop goroutine.
	deferred []func()
}

// New creates a loop. Call Run to start processing.
func New(logger *zap.Logger) *Loop {
	return &Loop{
		tasks: make(chan func(), 1024),
		done:  make(chan struct{}),
		log:   logger.Named("loop"),
	}
}

// Run processes tasks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.run(fn)
			l.drainDeferred()
		}
	}
}

// Stop ends Run. Queued tasks are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Post queues fn. It reports false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// NextTick runs fn right after the current task completes. It must be
// called from the loop goroutine.
func (l *Loop) NextTick(fn func()) {
	l.deferred = append(l.deferred, fn)
}

// AfterFunc runs fn on the loop once d has elapsed, unless stopped first.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &timer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.cancelled.Load() {
				return
			}
			t.fired.Store(true)
			fn()
		})
	})
	return t
}

func (l *Loop) drainDeferred() {
	for len(l.deferred) > 0 {
		next := l.deferred
		l.deferred = nil
		for _, fn := range next {
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("task panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

type timer struct {
	t         *time.Timer
	cancelled atomic.Bool
	fired     atomic.Bool
}

func (t *timer) Stop() bool {
	t.t.Stop()
	// A fire that is already queued on the loop still sees the flag.
	wasPending := !t.cancelled.Swap(true)
	return wasPending && !t.fired.Load()
}
