package notify

import (
	"sync"
	"time"

	"github.com/attunehq/attune/internal/util"
)

// RateLimiter tracks notification sends per user against hourly and daily
// caps. Check-and-record is a single critical section per user, so two
// concurrent senders can never both pass a check that jointly exceeds the
// cap. Users are fully independent.
type RateLimiter struct {
	mu    sync.Mutex
	users map[string]*userCounter
}

type userCounter struct {
	mu   sync.Mutex
	sent []time.Time
}

// NewRateLimiter creates an empty rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{users: make(map[string]*userCounter)}
}

func (l *RateLimiter) counter(userID string) *userCounter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.users[userID]
	if !ok {
		c = &userCounter{}
		l.users[userID] = c
	}
	return c
}

// TryAcquire atomically checks the caps and, when under both, records a
// send. It returns false without recording when either cap is reached.
func (l *RateLimiter) TryAcquire(userID string, freq Frequency, now time.Time) bool {
	c := l.counter(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)
	hourly, daily := c.countsLocked(now)
	if hourly >= freq.MaxPerHour || daily >= freq.MaxPerDay {
		return false
	}
	c.sent = append(c.sent, now)
	return true
}

// RecordSend registers a delivery that happened outside TryAcquire, e.g.
// an urgent notification that bypassed the caps.
func (l *RateLimiter) RecordSend(userID string, now time.Time) {
	c := l.counter(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)
	c.sent = append(c.sent, now)
}

// Status reports whether the caps are currently reached for the user.
func (l *RateLimiter) Status(userID string, freq Frequency, now time.Time) LimitStatus {
	c := l.counter(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)
	hourly, daily := c.countsLocked(now)
	return LimitStatus{
		HourlyLimitReached: hourly >= freq.MaxPerHour,
		DailyLimitReached:  daily >= freq.MaxPerDay,
	}
}

// Counts returns sends in the trailing hour and since local midnight.
func (l *RateLimiter) Counts(userID string, now time.Time) (hourly, daily int) {
	c := l.counter(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)
	return c.countsLocked(now)
}

// countsLocked computes sends in the trailing hour and since local midnight.
func (c *userCounter) countsLocked(now time.Time) (hourly, daily int) {
	hourAgo := now.Add(-time.Hour)
	midnight := util.LocalMidnight(now)

	for _, t := range c.sent {
		if t.After(hourAgo) {
			hourly++
		}
		if !t.Before(midnight) {
			daily++
		}
	}
	return hourly, daily
}

// pruneLocked drops entries that no window can count anymore.
func (c *userCounter) pruneLocked(now time.Time) {
	cutoff := util.LocalMidnight(now)
	if hourAgo := now.Add(-time.Hour); hourAgo.Before(cutoff) {
		cutoff = hourAgo
	}

	kept := c.sent[:0]
	for _, t := range c.sent {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	c.sent = kept
}
