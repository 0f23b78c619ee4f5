package limiter

import (
	"math"
	"sync"
	"time"
)

// Decision is the outcome of one admission check. Rejection is a normal
// outcome, not an error: the caller turns it into a too-many-requests
// response using the embedded header state.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  float64
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter is a per-client token bucket admission controller. Buckets are
// materialized lazily on first use, initialized full, and refilled on demand:
// there is no background timer.
type RateLimiter struct {
	capacity float64
	rate     float64 // tokens per second

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

const admissionCost = 1.0

// New creates a RateLimiter allowing calls admission checks per period with
// bursts up to calls.
func New(calls int, period time.Duration) *RateLimiter {
	if calls < 1 {
		calls = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	return &RateLimiter{
		capacity: float64(calls),
		rate:     float64(calls) / period.Seconds(),
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

// Admit checks and debits one token for the given client key. The
// read-modify-write of the bucket is a single critical section, so concurrent
// admission checks for the same client never over-debit.
func (l *RateLimiter) Admit(clientKey string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	b, ok := l.buckets[clientKey]
	if !ok {
		b = &bucket{tokens: l.capacity, lastSeen: now}
		l.buckets[clientKey] = b
	} else {
		elapsed := now.Sub(b.lastSeen).Seconds()
		if elapsed > 0 {
			b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.rate)
		}
		b.lastSeen = now
	}

	if b.tokens >= admissionCost {
		b.tokens -= admissionCost
		return Decision{
			Allowed:   true,
			Limit:     int(l.capacity),
			Remaining: b.tokens,
			ResetAt:   l.resetAt(b, now),
		}
	}

	wait := time.Duration((admissionCost - b.tokens) / l.rate * float64(time.Second))
	return Decision{
		Allowed:    false,
		Limit:      int(l.capacity),
		Remaining:  b.tokens,
		ResetAt:    l.resetAt(b, now),
		RetryAfter: wait,
	}
}

// resetAt reports when the bucket will be full again at the current rate
func (l *RateLimiter) resetAt(b *bucket, now time.Time) time.Time {
	missing := l.capacity - b.tokens
	if missing <= 0 {
		return now
	}
	return now.Add(time.Duration(missing / l.rate * float64(time.Second)))
}
