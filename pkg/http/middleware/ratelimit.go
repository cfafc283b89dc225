package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter holds one token bucket per client key.
type KeyedLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

func NewKeyedLimiter(rps float64, burst int, idleTTL time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Allow consumes one token for key.
func (k *KeyedLimiter) Allow(key string) bool {
	now := k.now()

	k.mu.Lock()
	cl, ok := k.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.clients[key] = cl
	}
	cl.lastSeen = now
	k.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// Sweep drops limiters idle for longer than the idle TTL and returns how many were dropped.
func (k *KeyedLimiter) Sweep() int {
	if k.idleTTL <= 0 {
		return 0
	}
	cutoff := k.now().Add(-k.idleTTL)

	k.mu.Lock()
	defer k.mu.Unlock()
	n := 0
	for key, cl := range k.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(k.clients, key)
			n++
		}
	}
	return n
}

// RateLimit rejects requests over the per-client rate with 429. Clients are keyed by
// their real IP. Paths in skip bypass the limiter.
func RateLimit(k *KeyedLimiter, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	var calls atomic.Int64

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := skipped[c.Path()]; ok {
				return next(c)
			}
			if calls.Add(1)%1024 == 0 {
				k.Sweep()
			}

			if !k.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
