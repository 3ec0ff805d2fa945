// Package feedpulse implements the client-side state engine behind a social
// feed and direct-messaging surface.
package feedpulse

import (
	"sync"
	"time"
)

// effectScheduler runs cancellable single-shot timer effects keyed by token.
//
// Re-arming a token cancels the previous timer for that token, so there is
// never more than one pending completion per logical signal. Close cancels
// every outstanding token and turns later schedule calls into no-ops, which
// lets teardown discard pending effects instead of queueing them. A panic
// inside a callback is recovered at the boundary; a scheduled effect must
// never crash the host.
type effectScheduler struct {
	mutex  sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func newEffectScheduler() *effectScheduler {
	return &effectScheduler{
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms fn to run after delay under the given token, cancelling any
// timer previously armed under the same token.
func (s *effectScheduler) Schedule(token string, delay time.Duration, fn func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return
	}

	if prev, exists := s.timers[token]; exists {
		prev.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mutex.Lock()
		if s.closed || s.timers[token] != timer {
			// Cancelled or superseded after firing was already committed
			s.mutex.Unlock()
			return
		}
		delete(s.timers, token)
		s.mutex.Unlock()

		defer func() {
			_ = recover()
		}()
		fn()
	})
	s.timers[token] = timer
}

// Cancel stops the timer armed under token, if any.
func (s *effectScheduler) Cancel(token string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if timer, exists := s.timers[token]; exists {
		timer.Stop()
		delete(s.timers, token)
	}
}

// Close cancels all outstanding timers. The scheduler accepts no further
// work afterwards.
func (s *effectScheduler) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for token, timer := range s.timers {
		timer.Stop()
		delete(s.timers, token)
	}
}
