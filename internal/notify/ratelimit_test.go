package notify

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquire_HourlyCap(t *testing.T) {
	l := NewRateLimiter()
	freq := Frequency{MaxPerHour: 3, MaxPerDay: 100}

	for i := 0; i < 3; i++ {
		assert.True(t, l.TryAcquire("alice", freq, noon))
	}
	assert.False(t, l.TryAcquire("alice", freq, noon))

	// An hour later the trailing window is clear again.
	assert.True(t, l.TryAcquire("alice", freq, noon.Add(61*time.Minute)))
}

func TestTryAcquire_DailyCap(t *testing.T) {
	l := NewRateLimiter()
	freq := Frequency{MaxPerHour: 100, MaxPerDay: 4}

	// Spread sends across the day so the hourly window never binds.
	for i := 0; i < 4; i++ {
		at := noon.Add(time.Duration(-i*2) * time.Hour)
		assert.True(t, l.TryAcquire("alice", freq, at))
	}
	assert.False(t, l.TryAcquire("alice", freq, noon))

	// The daily window resets at local midnight, not 24 hours later.
	nextDay := time.Date(2026, 8, 13, 0, 30, 0, 0, time.UTC)
	assert.True(t, l.TryAcquire("alice", freq, nextDay))
}

func TestTryAcquire_UsersAreIndependent(t *testing.T) {
	l := NewRateLimiter()
	freq := Frequency{MaxPerHour: 1, MaxPerDay: 10}

	assert.True(t, l.TryAcquire("alice", freq, noon))
	assert.False(t, l.TryAcquire("alice", freq, noon))
	assert.True(t, l.TryAcquire("bob", freq, noon))
}

func TestRecordSend_CountsAgainstBudget(t *testing.T) {
	l := NewRateLimiter()
	freq := Frequency{MaxPerHour: 2, MaxPerDay: 10}

	l.RecordSend("alice", noon)
	l.RecordSend("alice", noon)

	assert.False(t, l.TryAcquire("alice", freq, noon))

	hourly, daily := l.Counts("alice", noon)
	assert.Equal(t, 2, hourly)
	assert.Equal(t, 2, daily)
}

func TestStatus_DoesNotConsume(t *testing.T) {
	l := NewRateLimiter()
	freq := Frequency{MaxPerHour: 1, MaxPerDay: 1}

	for i := 0; i < 5; i++ {
		status := l.Status("alice", freq, noon)
		assert.False(t, status.HourlyLimitReached)
	}
	assert.True(t, l.TryAcquire("alice", freq, noon))

	status := l.Status("alice", freq, noon)
	assert.True(t, status.HourlyLimitReached)
	assert.True(t, status.DailyLimitReached)
}

// TestTryAcquire_ConcurrentSendersNeverExceedCap hammers one user from
// several goroutines; the number of successful acquisitions must equal the
// cap exactly.
func TestTryAcquire_ConcurrentSendersNeverExceedCap(t *testing.T) {
	l := NewRateLimiter()
	freq := Frequency{MaxPerHour: 10, MaxPerDay: 10}

	var granted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for g := 0; g < 5; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < 40; i++ {
				if l.TryAcquire("alice", freq, noon) {
					granted.Add(1)
				}
			}
		}()
	}
	close(start)
	wg.Wait()

	require.EqualValues(t, 10, granted.Load())

	hourly, _ := l.Counts("alice", noon)
	assert.Equal(t, 10, hourly)
}
