package http

import (
	"sync"
	"time"

	"github.com/sampsyo/band/internal/domain"
)

// PostRateLimiter caps how fast one session can post, with a sliding
// window over recent attempts.
type PostRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.SessionID][]time.Time
	limit    int
	interval time.Duration
}

func NewPostRateLimiter(limit int, interval time.Duration) *PostRateLimiter {
	return &PostRateLimiter{
		history:  make(map[domain.SessionID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *PostRateLimiter) Allow(sess domain.SessionID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.limit <= 0 {
		return true
	}

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[sess]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[sess] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[sess] = fresh
	return true
}
