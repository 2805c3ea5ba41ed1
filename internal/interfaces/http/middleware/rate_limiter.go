package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter holds rate limiters for each client IP address
type IPRateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration

	// OnReject is called for every dropped request.
	OnReject func()
}

// NewIPRateLimiter creates a new IP-based rate limiter
// rps: requests per second allowed per IP
// burst: maximum burst size
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  10 * time.Minute,
	}
}

// NewPerMinuteRateLimiter allows perMinute requests per IP with a burst of the same size.
func NewPerMinuteRateLimiter(perMinute int) *IPRateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return NewIPRateLimiter(float64(perMinute)/60, perMinute)
}

// Allow reports whether a request from ip may proceed.
func (i *IPRateLimiter) Allow(ip string) bool {
	return i.allowAt(ip, time.Now())
}

func (i *IPRateLimiter) allowAt(ip string, now time.Time) bool {
	i.mu.Lock()
	v, exists := i.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(i.rps, i.burst)}
		i.visitors[ip] = v
	}
	v.lastSeen = now
	i.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Cleanup removes limiters of clients idle for longer than the idle TTL
// until ctx is done.
func (i *IPRateLimiter) Cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			i.evictIdle(now)
		case <-ctx.Done():
			return
		}
	}
}

func (i *IPRateLimiter) evictIdle(now time.Time) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	evicted := 0
	for ip, v := range i.visitors {
		if now.Sub(v.lastSeen) > i.idleTTL {
			delete(i.visitors, ip)
			evicted++
		}
	}
	return evicted
}

// RateLimit middleware limits requests per client IP address
func RateLimit(limiter *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				if limiter.OnReject != nil {
					limiter.OnReject()
				}
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP takes the first X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
