package auth

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/render"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/SergeyParamoshkin/blogcms/internal/errresponse"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter is a token bucket per client IP. Idle buckets are evicted.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters.Get(key)
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
	}
	// Re-adding refreshes the idle expiry.
	rl.limiters.Add(key, l)

	return l
}

// Allow reports whether key may make a request now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIP(r)
		if !rl.Allow(key) {
			logging.FromContext(r.Context()).Warnw("rate limit exceeded", "client", key, "path", r.URL.Path)

			retry := 1
			if rl.rate > 0 {
				retry = int(1/float64(rl.rate)) + 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			if err := render.Render(w, r, errresponse.ErrTooManyRequests); err != nil {
				logging.FromContext(r.Context()).Errorw(err.Error())
			}

			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller address without its port. RealIP should run
// earlier in the chain.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
