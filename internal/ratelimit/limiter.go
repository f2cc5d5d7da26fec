package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Limiter enforces a per-character sliding window over the dialogue path.
// It records one timestamp per admitted request and rejects once the window
// holds the configured maximum.
type Limiter struct {
	window time.Duration
	limit  int

	mu      sync.Mutex
	history map[string][]time.Time
	now     func() time.Time
}

// New returns a Limiter allowing limit admissions per window per character.
func New(window time.Duration, limit int) *Limiter {
	return &Limiter{
		window:  window,
		limit:   limit,
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Admit reports whether a request for characterID may proceed. On rejection
// retryAfter is the wait until the oldest in-window timestamp expires,
// rounded up to whole seconds and always at least one second.
func (l *Limiter) Admit(characterID string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.history[characterID][:0]
	for _, t := range l.history[characterID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.limit {
		l.history[characterID] = recent
		wait := recent[0].Add(l.window).Sub(now)
		secs := math.Ceil(wait.Seconds())
		if secs < 1 {
			secs = 1
		}
		return false, time.Duration(secs) * time.Second
	}

	l.history[characterID] = append(recent, now)
	return true, 0
}
