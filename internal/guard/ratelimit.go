package guard

import (
	"sync"
	"time"

	"kbrag/internal/rag"
)

// RateLimiter counts requests per identity in fixed wall-clock minute
// buckets. The window resets at every minute boundary rather than sliding,
// so retry_after is always the time until the next boundary.
type RateLimiter struct {
	perMinute int
	now       func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	minute int64
	count  int
}

func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
	}
}

// Allow admits the request or returns a PolicyError carrying the time until
// the current window ends. The count increments only on admission, so
// rejected requests cannot extend an identity's lockout.
func (r *RateLimiter) Allow(identity string) error {
	now := r.now()
	minute := now.Unix() / 60

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[identity]
	if !ok || b.minute != minute {
		b = &bucket{minute: minute}
		r.buckets[identity] = b
	}
	if b.count >= r.perMinute {
		next := time.Unix((minute+1)*60, 0)
		return &rag.PolicyError{
			Reason:     "rate limit exceeded",
			RetryAfter: next.Sub(now),
		}
	}
	b.count++

	// Old buckets are dead weight once their minute has passed.
	if len(r.buckets) > 1024 {
		for id, old := range r.buckets {
			if old.minute != minute {
				delete(r.buckets, id)
			}
		}
	}
	return nil
}
