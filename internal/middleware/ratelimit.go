package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/errors"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/util"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit  int
	Window time.Duration
	// KeyFunc picks the bucket for a request; client IP when nil.
	KeyFunc func(c *gin.Context) string
}

// SMSRateLimitConfig limits SMS code requests per phone number.
func SMSRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:  5,
		Window: 10 * time.Minute,
		KeyFunc: func(c *gin.Context) string {
			if phone := c.Request.FormValue("phone"); phone != "" {
				return "phone:" + phone
			}
			return "ip:" + c.ClientIP()
		},
	}
}

// IdentityRateLimitConfig limits password and registration calls per client IP.
func IdentityRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 20, Window: time.Minute}
}

// TokenBucket for rate limiting
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func NewTokenBucket(maxTokens float64, refillRate float64, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: now,
	}
}

// Allow takes one token if available.
func (tb *TokenBucket) Allow(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = math.Min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// RetryAfter returns seconds to wait before the next token.
func (tb *TokenBucket) RetryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens >= 1 {
		return 0
	}
	return int((1-tb.tokens)/tb.refillRate) + 1
}

func (tb *TokenBucket) full(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.tokens+now.Sub(tb.lastRefill).Seconds()*tb.refillRate >= tb.maxTokens
}

// RateLimiter keeps one token bucket per key. Buckets are process-local.
type RateLimiter struct {
	config  RateLimitConfig
	buckets map[string]*TokenBucket
	mu      sync.Mutex
	now     func() time.Time
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*TokenBucket),
		now:     time.Now,
	}
}

func (rl *RateLimiter) bucket(key string) *TokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		refillRate := float64(rl.config.Limit) / rl.config.Window.Seconds()
		b = NewTokenBucket(float64(rl.config.Limit), refillRate, rl.now())
		rl.buckets[key] = b
	}
	return b
}

// Allow checks if key may make a request now.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	b := rl.bucket(key)
	if b.Allow(rl.now()) {
		return true, 0
	}
	return false, b.RetryAfter()
}

// Sweep drops buckets that have refilled completely.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		if b.full(now) {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// Middleware answers 429 once a key runs out of tokens.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.config.KeyFunc(c)
		allowed, retryAfter := rl.Allow(key)
		if !allowed {
			logger.Log.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.FullPath()),
			)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			util.RespondWithAPIError(c, errors.RateLimited(retryAfter))
			c.Abort()
			return
		}
		c.Next()
	}
}
