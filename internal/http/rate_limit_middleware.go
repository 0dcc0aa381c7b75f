package httpx

import (
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter admits up to limit requests per key over window.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

// rateDecision is what the middleware needs to answer and set headers:
// count is the quota consumed so far, windowEnd when it is fully restored.
type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

// ratePolicy binds a quota to a route class.
type ratePolicy struct {
	limit  int
	window time.Duration
}

var (
	writePolicy  = ratePolicy{limit: 60, window: time.Minute}
	readPolicy   = ratePolicy{limit: 120, window: time.Minute}
	streamPolicy = ratePolicy{limit: 30, window: 30 * time.Second}
)

const idleBucketSweep = 5 * time.Minute

// bucketLimiter keeps one token bucket per key. A bucket holds limit tokens
// and refills one every window/limit.
type bucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens   *rate.Limiter
	limit    int
	window   time.Duration
	lastSeen time.Time
}

// NewMemoryRateLimiter returns a process-local limiter.
func NewMemoryRateLimiter() RateLimiter {
	return newMemoryRateLimiter(time.Now)
}

func newMemoryRateLimiter(now func() time.Time) *bucketLimiter {
	bl := &bucketLimiter{
		buckets: make(map[string]*bucket),
		now:     now,
		stop:    make(chan struct{}),
	}
	go bl.sweep()
	return bl
}

func (bl *bucketLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := bl.now()

	bl.mu.Lock()
	defer bl.mu.Unlock()

	b, ok := bl.buckets[key]
	if !ok || b.limit != limit || b.window != window {
		b = &bucket{
			tokens: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
			limit:  limit,
			window: window,
		}
		bl.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.tokens.AllowN(now, 1)
	left := b.tokens.TokensAt(now)
	missing := float64(limit) - left
	refill := time.Duration(math.Ceil(missing * float64(window) / float64(limit)))
	return rateDecision{
		allowed:   allowed,
		count:     limit - int(math.Floor(left)),
		windowEnd: now.Add(refill),
	}
}

func (bl *bucketLimiter) sweep() {
	ticker := time.NewTicker(idleBucketSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			bl.dropIdle(bl.now())
		case <-bl.stop:
			return
		}
	}
}

// dropIdle forgets buckets that have been idle long enough to be full again.
func (bl *bucketLimiter) dropIdle(now time.Time) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for key, b := range bl.buckets {
		if now.Sub(b.lastSeen) >= b.window {
			delete(bl.buckets, key)
		}
	}
}

func (bl *bucketLimiter) Close() {
	bl.once.Do(func() { close(bl.stop) })
}

// limited authenticates the request, then charges policy against the caller.
// Buckets are scoped by route so reads never starve writes.
func (r *Router) limited(route string, policy ratePolicy, next http.HandlerFunc) http.HandlerFunc {
	return r.requireAuth(func(w http.ResponseWriter, req *http.Request) {
		if r.limiter == nil || policy.limit <= 0 {
			next(w, req)
			return
		}
		subject := rateSubject(req)
		decision := r.limiter.Allow(route+"|"+subject, policy.limit, policy.window)
		r.applyRateHeaders(w, policy.limit, decision)
		if decision.allowed {
			next(w, req)
			return
		}
		kind, _, _ := strings.Cut(subject, ":")
		r.recordRateLimitHit(route, kind)
		writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
	})
}

// rateSubject keys quotas by user, falling back to the client address.
func rateSubject(req *http.Request) string {
	if info, ok := authInfoFromContext(req.Context()); ok && info.UserID != "" {
		return "user:" + info.UserID
	}
	if host := clientIP(req); host != "" {
		return "ip:" + host
	}
	return "ip:unknown"
}
