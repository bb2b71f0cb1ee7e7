package main

import (
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olgasafonova/atlassian-mcp-server/metrics"
)

const (
	// DefaultMaxBodySize caps JSON-RPC request bodies on HTTP transports.
	DefaultMaxBodySize = 1 << 20

	limiterIdleTTL = 10 * time.Minute

	// mcpRoute is the route label for everything behind the middleware.
	mcpRoute = "mcp"
)

// recoverPanic logs a panic instead of letting it take the process down.
// Call it with defer.
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		metrics.PanicsRecovered.WithLabelValues(operation).Inc()
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token bucket: rate requests per interval, with
// bursts of up to rate.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	rate     int
	interval time.Duration

	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewRateLimiter starts a limiter and its idle-client cleanup loop.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		rate:     rate,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether ip may make a request now.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[ip]
	if !ok {
		every := rate.Every(rl.interval / time.Duration(max(rl.rate, 1)))
		c = &clientLimiter{limiter: rate.NewLimiter(every, max(rl.rate, 1))}
		rl.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, c := range rl.clients {
				if now.Sub(c.lastSeen) > limiterIdleTTL {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Close stops the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stopCh) })
}

// SecurityConfig configures the HTTP transport middleware.
type SecurityConfig struct {
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int
	// MaxBodySize is the largest accepted request body in bytes.
	MaxBodySize int64
}

// SecurityMiddleware guards the HTTP transports.
type SecurityMiddleware struct {
	next    http.Handler
	logger  *slog.Logger
	config  SecurityConfig
	limiter *RateLimiter
}

// NewSecurityMiddleware wraps handler with rate limiting, a body size cap,
// panic recovery and request metrics.
func NewSecurityMiddleware(handler http.Handler, logger *slog.Logger, config SecurityConfig) *SecurityMiddleware {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	sm := &SecurityMiddleware{next: handler, logger: logger, config: config}
	if config.RateLimit > 0 {
		sm.limiter = NewRateLimiter(config.RateLimit, time.Minute)
	}
	return sm
}

// Close releases the rate limiter.
func (sm *SecurityMiddleware) Close() {
	if sm.limiter != nil {
		sm.limiter.Close()
	}
}

func (sm *SecurityMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		method := methodLabel(r.Method)
		metrics.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, mcpRoute).Observe(time.Since(start).Seconds())
	}()
	defer recoverPanic(sm.logger, "http")

	ip := clientIP(r)
	if sm.limiter != nil && !sm.limiter.Allow(ip) {
		metrics.RateLimitRejections.Inc()
		sm.logger.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
		http.Error(rec, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if r.ContentLength > sm.config.MaxBodySize {
		http.Error(rec, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(rec, r.Body, sm.config.MaxBodySize)

	sm.next.ServeHTTP(rec, r)
}

// methodLabel keeps the method label set closed.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions, http.MethodHead:
		return method
	}
	return "OTHER"
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the response status. It passes Flush through so
// streaming transports keep working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
