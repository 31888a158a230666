package session

import (
	"sync"
	"time"
)

// TimerHandle is a cancellable scheduled task. Stop reports whether the
// task was cancelled before firing.
type TimerHandle interface {
	Stop() bool
}

// Scheduler is the handle-returning schedule/cancel primitive behind the
// Clock. Production uses timers; tests inject a manual fake so renewal
// behavior is deterministic.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) TimerHandle
}

// TimerScheduler schedules via time.AfterFunc.
type TimerScheduler struct{}

// Schedule runs fn once after d. Non-positive delays fire immediately; a
// near-expiry token still deserves one renewal attempt.
func (TimerScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	if d < 0 {
		d = 0
	}
	return time.AfterFunc(d, fn)
}

// Clock guarantees at most one outstanding renewal timer per session.
type Clock struct {
	mu     sync.Mutex
	sched  Scheduler
	handle TimerHandle
}

// NewClock builds a Clock over the given scheduler.
func NewClock(sched Scheduler) *Clock {
	return &Clock{sched: sched}
}

// Arm schedules fn to fire once after d, cancelling any previously armed
// timer first.
func (c *Clock) Arm(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		c.handle.Stop()
	}
	c.handle = c.sched.Schedule(d, fn)
}

// Disarm cancels any pending timer. Idempotent.
func (c *Clock) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		c.handle.Stop()
		c.handle = nil
	}
}

// Armed reports whether a timer is currently scheduled.
func (c *Clock) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}
