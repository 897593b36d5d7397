package middleware

import (
	"net/http"
	"sync"
	"time"
)

// idleEviction is how long a client's bucket may sit unused before a
// sweep reclaims it.
const idleEviction = 10 * time.Minute

// sweepInterval bounds how often allow pays for an eviction pass.
const sweepInterval = 1024

// ipLimiter throttles requests per client IP with a token bucket:
// each bucket refills at rate tokens per second up to burst, and a
// request spends one token. Idle buckets are evicted inline every
// sweepInterval calls, so the limiter holds no background goroutine.
type ipLimiter struct {
	mu      sync.Mutex
	rate    float64
	burst   float64
	buckets map[string]*tokenBucket
	calls   int
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

func newIPLimiter(rate float64, burst int) *ipLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{
		rate:    rate,
		burst:   float64(burst),
		buckets: make(map[string]*tokenBucket),
	}
}

// allow spends one token for ip at the given instant, reporting
// whether one was available. Taking the clock as an argument keeps
// refill behavior testable.
func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepInterval == 0 {
		l.sweep(now)
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &tokenBucket{tokens: l.burst, seen: now}
		l.buckets[ip] = b
	}

	b.tokens += now.Sub(b.seen).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets idle longer than idleEviction. Caller holds mu.
func (l *ipLimiter) sweep(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.seen) > idleEviction {
			delete(l.buckets, ip)
		}
	}
}

// RateLimit rejects requests beyond rate requests/sec (with the given
// burst allowance) per client IP with 429 Too Many Requests. The
// client IP comes from X-Real-Ip when chi's RealIP middleware has set
// it, falling back to the connection address.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := newIPLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.Header.Get("X-Real-Ip")
			if ip == "" {
				ip = r.RemoteAddr
			}
			if !limiter.allow(ip, time.Now()) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
