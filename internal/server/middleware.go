package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	httperr "github.com/aevon-lab/knocklog/internal/core/errors"
	"github.com/aevon-lab/knocklog/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID reuses the caller's X-Request-ID or assigns a new UUID, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestMetrics counts finished requests by matched route and status.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one token bucket per client and drops buckets idle
// for longer than ttl. Sweeps run inline, at most once per ttl.
type clientLimiters struct {
	rps   rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

func newClientLimiters(rps float64, burst int, ttl time.Duration, now func() time.Time) *clientLimiters {
	return &clientLimiters{
		rps:       rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		now:       now,
		clients:   make(map[string]*clientLimiter),
		lastSweep: now(),
	}
}

func (l *clientLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		for key, entry := range l.clients {
			if now.Sub(entry.lastSeen) >= l.ttl {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.clients[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit applies a token bucket per client IP and answers 429 when it is empty.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if burst < 1 {
		burst = 1
	}
	limiters := newClientLimiters(rps, burst, limiterIdleTTL, time.Now)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httperr.ErrorResponse{
				ErrorType: httperr.HttpRateLimitedError,
				Message:   "Too many requests",
			})
			return
		}
		c.Next()
	}
}
