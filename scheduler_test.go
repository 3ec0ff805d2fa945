package feedpulse

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestScheduleFires tests that a scheduled effect runs once
func TestScheduleFires(t *testing.T) {
	sched := newEffectScheduler()
	defer sched.Close()

	var fired int32
	sched.Schedule("token", 10*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestScheduleRearmIsSingleShot tests that re-arming a token cancels the
// previous timer instead of stacking completions
func TestScheduleRearmIsSingleShot(t *testing.T) {
	sched := newEffectScheduler()
	defer sched.Close()

	var fired int32
	for i := 0; i < 10; i++ {
		sched.Schedule("debounce", 50*time.Millisecond, func() {
			atomic.AddInt32(&fired, 1)
		})
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)

	// No further completions arrive after the single shot
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

// TestCancelStopsPendingEffect tests that Cancel discards a pending effect
func TestCancelStopsPendingEffect(t *testing.T) {
	sched := newEffectScheduler()
	defer sched.Close()

	var fired int32
	sched.Schedule("token", 30*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})
	sched.Cancel("token")

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

// TestCloseCancelsAllTokens tests that Close discards every pending effect
// and rejects later work
func TestCloseCancelsAllTokens(t *testing.T) {
	sched := newEffectScheduler()

	var fired int32
	sched.Schedule("a", 30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	sched.Schedule("b", 30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	sched.Close()

	// Scheduling after Close is a no-op, not a queue
	sched.Schedule("c", 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

// TestCallbackPanicIsContained tests that a panicking effect does not crash
// the host and later effects still run
func TestCallbackPanicIsContained(t *testing.T) {
	sched := newEffectScheduler()
	defer sched.Close()

	sched.Schedule("boom", 5*time.Millisecond, func() {
		panic("timer effect against a torn-down view")
	})

	var fired int32
	sched.Schedule("after", 20*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestIndependentTokens tests that distinct tokens do not cancel each other
func TestIndependentTokens(t *testing.T) {
	sched := newEffectScheduler()
	defer sched.Close()

	var fired int32
	sched.Schedule("a", 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	sched.Schedule("b", 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 2
	}, time.Second, 5*time.Millisecond)
}
