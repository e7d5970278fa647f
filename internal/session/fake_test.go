package session

import (
	"context"
	"sync"
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// fakeScheduler runs timers against a virtual clock on the test goroutine.
type fakeScheduler struct {
	now    time.Time
	timers []*fakeTimer

	mu     sync.Mutex
	posted []func()
}

type fakeTimer struct {
	at      time.Time
	every   time.Duration
	fn      func()
	stopped bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeScheduler) Now() time.Time { return f.now }

func (f *fakeScheduler) Every(d time.Duration, fn func()) func() {
	t := &fakeTimer{at: f.now.Add(d), every: d, fn: fn}
	f.timers = append(f.timers, t)
	return func() { t.stopped = true }
}

func (f *fakeScheduler) After(d time.Duration, fn func()) func() {
	t := &fakeTimer{at: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return func() { t.stopped = true }
}

func (f *fakeScheduler) Post(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, fn)
}

func (f *fakeScheduler) pendingPosts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posted)
}

// drain runs posted callbacks as the loop would.
func (f *fakeScheduler) drain() {
	f.mu.Lock()
	posted := f.posted
	f.posted = nil
	f.mu.Unlock()
	for _, fn := range posted {
		fn()
	}
}

// live counts timers that have not been stopped.
func (f *fakeScheduler) live() int {
	n := 0
	for _, t := range f.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward, firing due timers in time order.
func (f *fakeScheduler) Advance(d time.Duration) {
	end := f.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range f.timers {
			if t.stopped || t.at.After(end) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		f.now = next.at
		if next.every > 0 {
			next.at = next.at.Add(next.every)
		} else {
			next.stopped = true
		}
		next.fn()
	}
	f.now = end
}

// fakeSubmitter records submissions and returns a fixed outcome.
type fakeSubmitter struct {
	mu    sync.Mutex
	calls []*model.SubmitExamRequest
	id    int64
	err   error
}

func (s *fakeSubmitter) Submit(_ context.Context, req *model.SubmitExamRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	return s.id, s.err
}

func (s *fakeSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
