package limiter

import "time"

// SetNowFunc replaces the limiter's clock for tests
func (l *RateLimiter) SetNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
