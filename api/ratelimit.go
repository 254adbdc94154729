package api

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter is a token bucket per user id. Idle buckets are evicted every
// 512 hits. A nil limiter allows everything.
type userLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu     sync.Mutex
	byUser map[string]*bucket
	hits   uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(rps float64, burst int, idleTTL time.Duration) *userLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &userLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		byUser:  make(map[string]*bucket),
	}
}

func (l *userLimiter) Allow(userID string, now time.Time) bool {
	if l == nil {
		return true
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byUser[userID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byUser[userID] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byUser {
			if v.lastSeen.Before(cutoff) {
				delete(l.byUser, k)
			}
		}
	}
	return allowed
}
