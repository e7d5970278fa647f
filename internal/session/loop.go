package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Loop is a single-goroutine event loop. Callbacks posted to it, including
// timer firings, run one at a time in Run.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
	log   zerolog.Logger
}

// NewLoop creates a loop; call Run to start processing.
func NewLoop(log zerolog.Logger) *Loop {
	return &Loop{
		queue: make(chan func(), 64),
		done:  make(chan struct{}),
		log:   log.With().Str("component", "event_loop").Logger(),
	}
}

// Run executes posted callbacks until ctx is cancelled. Callbacks still
// queued at cancellation are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			if err := ctx.Err(); err != nil {
				return err
			}
			l.exec(fn)
		}
	}
}

// exec keeps the loop alive if a callback panics, so restart stays reachable.
func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Msg("Event callback panicked")
		}
	}()
	fn()
}

// Post queues fn. It drops fn once the loop has stopped. Post blocks while
// the queue is full, so callbacks must not call it on the loop goroutine.
func (l *Loop) Post(fn func()) {
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Every posts fn every d until the returned stop function is called.
func (l *Loop) Every(d time.Duration, fn func()) func() {
	stopCh := make(chan struct{})
	go func() {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				l.postUnless(stopCh, fn)
			case <-stopCh:
				return
			case <-l.done:
				return
			}
		}
	}()
	return closer(stopCh)
}

// After posts fn once after d unless stopped first.
func (l *Loop) After(d time.Duration, fn func()) func() {
	stopCh := make(chan struct{})
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			l.postUnless(stopCh, fn)
		case <-stopCh:
		case <-l.done:
		}
	}()
	return closer(stopCh)
}

func (l *Loop) postUnless(stopCh <-chan struct{}, fn func()) {
	select {
	case l.queue <- fn:
	case <-stopCh:
	case <-l.done:
	}
}

func closer(ch chan struct{}) func() {
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}
