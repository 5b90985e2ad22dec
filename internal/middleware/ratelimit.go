// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Counter counts hits per key in fixed windows. Hit records one hit and
// returns the count so far in the current window and the time left in it.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimiter throttles each client per endpoint: a client may send limit
// requests to one path per window.
type RateLimiter struct {
	counter Counter
	limit   int64
	window  time.Duration
	stop    func()
}

// NewRateLimiter creates a limiter that keeps its counters in process.
// Call Stop to end its cleanup goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	mc := newMemoryCounter(window)
	return &RateLimiter{counter: mc, limit: int64(limit), window: window, stop: mc.close}
}

// NewSharedRateLimiter creates a limiter over an external counter so that
// several server processes share one budget per client.
func NewSharedRateLimiter(c Counter, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{counter: c, limit: int64(limit), window: window, stop: func() {}}
}

// Stop releases the limiter's background resources.
func (rl *RateLimiter) Stop() {
	rl.stop()
}

// Middleware rejects a client over its budget with a JSON 429 and a
// Retry-After header. Counter failures let the request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		n, left, err := rl.counter.Hit(r.Context(), ip+" "+r.URL.Path, rl.window)
		if err != nil {
			slog.Warn("rate limit counter failed", "ip", ip, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if n > rl.limit {
			slog.Warn("rate limited", "ip", ip, "path", r.URL.Path)
			if left <= 0 {
				left = rl.window
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(left.Seconds()))))
			writeDetail(w, http.StatusTooManyRequests, MsgThrottled)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type window struct {
	count int64
	reset time.Time
}

// memoryCounter is the in-process Counter.
type memoryCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

func newMemoryCounter(sweep time.Duration) *memoryCounter {
	c := &memoryCounter{
		windows: make(map[string]*window),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go func() {
		ticker := time.NewTicker(max(sweep, time.Minute))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.done:
				return
			}
		}
	}()
	return c
}

func (c *memoryCounter) Hit(_ context.Context, key string, d time.Duration) (int64, time.Duration, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(d)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.reset.Sub(now), nil
}

// sweep drops finished windows.
func (c *memoryCounter) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, w := range c.windows {
		if !now.Before(w.reset) {
			delete(c.windows, key)
		}
	}
}

func (c *memoryCounter) close() {
	c.once.Do(func() { close(c.done) })
}

// clientIP returns the original client address, preferring the leftmost
// X-Forwarded-For entry, then X-Real-IP, then the connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
