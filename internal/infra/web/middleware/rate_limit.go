package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/DioGolang/GoShop/pkg/logger"
)

type RateLimitConfig struct {
	RPS           int
	Burst         int
	IdleTimeout   time.Duration // buckets unused for this long are dropped
	SweepInterval time.Duration
}

// ClientLimiter keeps one token bucket per client address.
type ClientLimiter struct {
	conf RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	*rate.Limiter
	used time.Time
}

// NewClientLimiter sweeps idle buckets in the background until ctx is done.
func NewClientLimiter(ctx context.Context, conf RateLimitConfig) *ClientLimiter {
	if conf.SweepInterval <= 0 {
		conf.SweepInterval = time.Minute
	}
	if conf.IdleTimeout <= 0 {
		conf.IdleTimeout = 3 * time.Minute
	}
	l := &ClientLimiter{conf: conf, buckets: make(map[string]*bucket)}
	go l.run(ctx)
	return l
}

func (l *ClientLimiter) run(ctx context.Context) {
	t := time.NewTicker(l.conf.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.sweep(now)
		}
	}
}

func (l *ClientLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for addr, b := range l.buckets {
		if now.Sub(b.used) > l.conf.IdleTimeout {
			delete(l.buckets, addr)
		}
	}
}

func (l *ClientLimiter) allow(addr string, now time.Time) bool {
	l.mu.Lock()
	b, ok := l.buckets[addr]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(rate.Limit(l.conf.RPS), l.conf.Burst)}
		l.buckets[addr] = b
	}
	b.used = now
	l.mu.Unlock()
	return b.AllowN(now, 1)
}

// Handler rejects requests over the client's budget with 429 and a JSON body.
func (l *ClientLimiter) Handler(log logger.Logger) func(http.Handler) http.Handler {
	retryAfter := "1"
	if l.conf.RPS > 0 {
		retryAfter = strconv.Itoa(max(1, l.conf.Burst/l.conf.RPS))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := clientIP(r)
			if l.allow(addr, time.Now()) {
				next.ServeHTTP(w, r)
				return
			}
			log.Warn(r.Context(), "request throttled",
				logger.String("client", addr),
				logger.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", retryAfter)
			writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
		})
	}
}

// clientIP takes the first X-Forwarded-For hop when one is present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
