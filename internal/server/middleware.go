package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"diag-storefront/internal/flows"
	"diag-storefront/internal/session"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"
	flowKey         = "flow"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestIDOf(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", requestIDOf(c)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.log.Warn("request", fields...)
			return
		}
		s.log.Info("request", fields...)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// auth binds the caller's checkout flow to the request. The bearer token is
// handed to the flow's session on every call so rotations are picked up.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c.GetHeader("Authorization"))
		if token == "" && s.deps.Fallback != nil {
			if sess, err := s.deps.Fallback.Current(c.Request.Context()); err == nil {
				token = sess.Token
			}
		}
		if token == "" {
			s.err(c, http.StatusUnauthorized, "Unauthorized", session.ErrMissingToken.Error())
			return
		}
		f, err := s.deps.Flows.Acquire(token)
		if err != nil {
			s.log.Info("rejected token", zap.String("request_id", requestIDOf(c)), zap.Error(err))
			s.err(c, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		c.Set(flowKey, f)
		c.Next()
	}
}

func bearer(h string) string {
	h = strings.TrimSpace(h)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func flowOf(c *gin.Context) *flows.Flow {
	return c.MustGet(flowKey).(*flows.Flow)
}

// rateLimiter keeps one token bucket per client address.
type rateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	rl := &rateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}
	if rps <= 0 {
		rl.rps = rate.Inf
	}
	go rl.cleanup(time.Minute, 3*time.Minute)
	return rl
}

func (rl *rateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *rateLimiter) cleanup(every, idle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-t.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > idle {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *rateLimiter) middleware(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			s.err(c, http.StatusTooManyRequests, "TooManyRequests", "rate limit exceeded")
			return
		}
		c.Next()
	}
}
