// Package ratelimit paces outbound calls to rate-limited collaborators using
// a token bucket composed with an independent sliding per-minute window. The
// bucket alone can still exceed a platform's per-minute quota during
// sustained traffic, which is why both limits are kept.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config holds rate limiting configuration.
type Config struct {
	// Rate is the continuous token refill rate, in tokens per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
	// PerMinute caps calls inside any sliding 60-second window.
	PerMinute int
}

// DefaultConfig returns limits suitable for a typical platform API.
func DefaultConfig() *Config {
	return &Config{
		Rate:      1.0,
		Burst:     10,
		PerMinute: 60,
	}
}

// Limiter is a thread-safe rate limiter. The zero value is not usable; use
// NewLimiter.
type Limiter struct {
	mu         sync.Mutex
	config     *Config
	tokens     float64
	lastRefill time.Time
	window     []time.Time
}

// NewLimiter creates a limiter with the given configuration. A nil config
// uses DefaultConfig. The bucket starts full.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Limiter{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Acquire obtains permission for one outbound call. In blocking mode it
// waits out any per-minute violation first, then any token deficit, and
// returns false only if ctx is cancelled while waiting. In non-blocking mode
// it returns false immediately when either limit is exhausted.
func (l *Limiter) Acquire(ctx context.Context, blocking bool) bool {
	for {
		l.mu.Lock()
		l.refill()
		l.trimWindow()

		var wait time.Duration
		switch {
		case len(l.window) >= l.config.PerMinute:
			wait = time.Until(l.window[0].Add(time.Minute))
		case l.tokens < 1:
			wait = time.Duration((1 - l.tokens) / l.config.Rate * float64(time.Second))
		default:
			l.tokens--
			l.window = append(l.window, time.Now())
			l.mu.Unlock()
			return true
		}
		l.mu.Unlock()

		if !blocking {
			return false
		}
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// Remaining returns how many calls are left in the current minute window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trimWindow()
	remaining := l.config.PerMinute - len(l.window)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset restores the limiter to its initial state.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.window = nil
	l.tokens = float64(l.config.Burst)
	l.lastRefill = time.Now()
}

// refill adds tokens based on elapsed time, capped at burst capacity.
// Caller must hold l.mu.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill)
	l.tokens += elapsed.Seconds() * l.config.Rate
	if l.tokens > float64(l.config.Burst) {
		l.tokens = float64(l.config.Burst)
	}
	l.lastRefill = now
}

// trimWindow drops window entries older than one minute. Caller must hold l.mu.
func (l *Limiter) trimWindow() {
	cutoff := time.Now().Add(-time.Minute)
	idx := 0
	for idx < len(l.window) && l.window[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		l.window = append(l.window[:0], l.window[idx:]...)
	}
}
