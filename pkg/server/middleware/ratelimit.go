package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const rateLimitBody = `<!DOCTYPE html>
<html>
<head><title>429 Too Many Requests</title></head>
<body>
<h1>429 Too Many Requests</h1>
</body>
</html>
`

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Enabled turns rate limiting on.
	Enabled bool

	// RequestsPerSecond is the steady-state rate per client IP.
	RequestsPerSecond float64

	// Burst is the bucket size per client IP.
	Burst int

	// IdleTTL is how long an idle client's limiter is kept before
	// eviction. Default: 10 minutes.
	IdleTTL time.Duration
}

// clientLimiter pairs a token bucket with its last-seen time.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter tracks one token bucket per client IP, evicting idle
// entries so the map stays bounded.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
	ttl     time.Duration
	done    chan struct{}
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	rl := &rateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// stop terminates the eviction goroutine.
func (rl *rateLimiter) stop() {
	close(rl.done)
}

// allow checks the client's bucket, creating one on first sight.
func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[clientIP]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[clientIP] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

// evictLoop drops limiters whose clients have gone idle.
func (rl *rateLimiter) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.ttl)
			rl.mu.Lock()
			for ip, cl := range rl.clients {
				if cl.lastSeen.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RateLimitMiddleware enforces a per-client-IP token bucket across all
// virtual hosts. Clients over the limit receive 429 with a Retry-After
// hint.
//
// Example usage:
//
//	handler = RateLimitMiddleware(cfg)(handler)
func RateLimitMiddleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cfg.RequestsPerSecond <= 0 {
			return next
		}
		rl := newRateLimiter(cfg)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := r.RemoteAddr
			if host, _, err := net.SplitHostPort(clientIP); err == nil {
				clientIP = host
			}

			if !rl.allow(clientIP) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, rateLimitBody)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
