package validation

import (
	"math"
	"sync"
	"time"
)

// RateLimiter meters the control traffic of telemetry clients. Each client
// owns a bucket holding up to burst messages that refills continuously at
// burst per window, so a quiet client can fire a short run of step or force
// commands while a client streaming pings settles at the steady rate.
//
// Buckets live until Forget is called; the server does that when a client
// disconnects.
type RateLimiter struct {
	burst float64
	rate  float64 // tokens per second
	now   func() time.Time

	mu      sync.Mutex
	buckets map[uint64]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter allows burst messages per window per client. burst is at
// least one.
func NewRateLimiter(burst int, window time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		burst:   float64(burst),
		rate:    float64(burst) / window.Seconds(),
		now:     time.Now,
		buckets: make(map[uint64]*bucket),
	}
}

// refill tops up the bucket of clientID, creating a full one on first
// contact. Caller holds rl.mu.
func (rl *RateLimiter) refill(clientID uint64) *bucket {
	now := rl.now()
	b, ok := rl.buckets[clientID]
	if !ok {
		b = &bucket{tokens: rl.burst, last: now}
		rl.buckets[clientID] = b
		return b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(rl.burst, b.tokens+elapsed*rl.rate)
	}
	b.last = now
	return b
}

// Allow spends one token of clientID's bucket and reports whether there was
// one to spend
func (rl *RateLimiter) Allow(clientID uint64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.refill(clientID)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Wait returns how long clientID has to hold off before Allow succeeds
func (rl *RateLimiter) Wait(clientID uint64) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.refill(clientID)
	if b.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - b.tokens) / rl.rate * float64(time.Second))
}

// Forget drops the bucket of a disconnected client
func (rl *RateLimiter) Forget(clientID uint64) {
	rl.mu.Lock()
	delete(rl.buckets, clientID)
	rl.mu.Unlock()
}

// Clients returns the number of clients holding a bucket
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
