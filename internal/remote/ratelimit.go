package remote

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limits describes the API quota. The server may override the request
// counts through X-RateLimit-Limit.
type Limits struct {
	ShortRequests int
	ShortWindow   time.Duration
	DailyRequests int
	MinInterval   time.Duration
}

// DefaultLimits allows 100 requests per 15 minutes and 1000 per day.
var DefaultLimits = Limits{
	ShortRequests: 100,
	ShortWindow:   15 * time.Minute,
	DailyRequests: 1000,
	MinInterval:   150 * time.Millisecond,
}

// window is one fixed quota window.
type window struct {
	limit    int
	usage    int
	resetsAt time.Time
}

// RateLimiter spaces out requests to stay within the API quota.
type RateLimiter struct {
	mu sync.Mutex

	limits      Limits
	short       window
	daily       window
	lastRequest time.Time
}

// NewRateLimiter creates a rate limiter with the given limits
func NewRateLimiter(limits Limits) *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		limits: limits,
		short:  window{limit: limits.ShortRequests, resetsAt: now.Add(limits.ShortWindow)},
		daily:  window{limit: limits.DailyRequests, resetsAt: nextUTCMidnight(now)},
	}
}

func nextUTCMidnight(t time.Time) time.Time {
	return t.Truncate(24 * time.Hour).Add(24 * time.Hour)
}

// sleep releases the lock while waiting for d or ctx.
func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	r.mu.Unlock()
	defer r.mu.Lock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until a request can be made without exceeding the quota
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.After(r.short.resetsAt) {
		r.short.usage = 0
		r.short.resetsAt = now.Add(r.limits.ShortWindow)
	}
	if now.After(r.daily.resetsAt) {
		r.daily.usage = 0
		r.daily.resetsAt = nextUTCMidnight(now)
	}

	if r.short.limit > 0 && r.short.usage >= r.short.limit {
		if err := r.sleep(ctx, time.Until(r.short.resetsAt)); err != nil {
			return err
		}
		r.short.usage = 0
		r.short.resetsAt = time.Now().Add(r.limits.ShortWindow)
	}

	if r.daily.limit > 0 && r.daily.usage >= r.daily.limit {
		if err := r.sleep(ctx, time.Until(r.daily.resetsAt)); err != nil {
			return err
		}
		r.daily.usage = 0
		r.daily.resetsAt = nextUTCMidnight(time.Now())
	}

	if err := r.sleep(ctx, r.limits.MinInterval-time.Since(r.lastRequest)); err != nil {
		return err
	}

	r.short.usage++
	r.daily.usage++
	r.lastRequest = time.Now()
	return nil
}

// UpdateFromHeaders syncs usage and limits with the server's view.
// Both headers carry "short,daily" pairs, e.g. X-RateLimit-Usage: "34,512".
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.short.usage, r.daily.usage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.short.limit, r.daily.limit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns the requests left in each window
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.short.limit - r.short.usage, r.daily.limit - r.daily.usage
}
