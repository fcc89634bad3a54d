package httpx

import (
	"errors"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("client rate limit exceeded")

// RateLimiter paces outgoing requests per target host with a token bucket.
// Requests wait for a token until their context ends.
type RateLimiter struct {
	limit rate.Limit
	burst int
	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limit: limit,
		burst: burst,
		hosts: map[string]*rate.Limiter{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if err := rl.limiter(r.URL.Host).Wait(r.Context()); err != nil {
				return nil, errors.Join(ErrRateLimited, err)
			}
			return next.RoundTrip(r)
		})
	}
}

func (rl *RateLimiter) limiter(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l := rl.hosts[host]
	if l == nil {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.hosts[host] = l
	}
	return l
}
