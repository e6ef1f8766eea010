package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"go-push-notification/internal/infrastructure/metrics"
)

const maxTrackedClients = 10000

// ConnectRateLimiter is a token bucket per client IP guarding the session
// endpoints. The least recently seen clients are evicted once
// maxTrackedClients buckets exist; an evicted client starts with a full
// bucket, which is what an idle one would have anyway.
type ConnectRateLimiter struct {
	limit rate.Limit
	burst int
	clock clockwork.Clock

	mu       sync.Mutex
	visitors *lru.Cache[string, *rate.Limiter]
}

func NewConnectRateLimiter(ratePerSecond float64, burst int, clock clockwork.Clock) *ConnectRateLimiter {
	return newConnectRateLimiter(ratePerSecond, burst, clock, maxTrackedClients)
}

func newConnectRateLimiter(ratePerSecond float64, burst int, clock clockwork.Clock, size int) *ConnectRateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	// lru.New only errors on a non-positive size
	visitors, _ := lru.New[string, *rate.Limiter](size)
	return &ConnectRateLimiter{
		limit:    rate.Limit(ratePerSecond),
		burst:    burst,
		clock:    clock,
		visitors: visitors,
	}
}

// Allow reports whether ip may open another session now.
func (l *ConnectRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	limiter, ok := l.visitors.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.visitors.Add(ip, limiter)
	}
	l.mu.Unlock()

	return limiter.AllowN(l.clock.Now(), 1)
}

// Handler rejects requests over the limit with 429.
func (l *ConnectRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			metrics.ConnectionsRateLimited.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
