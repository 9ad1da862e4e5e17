package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"backoffice/internal/shared/ratelimit"
	"backoffice/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup = "DEFAULT"
)

// RateLimitRule allows Limit calls per Window.
type RateLimitRule struct {
	Limit  int
	Window time.Duration
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      ratelimit.Limiter
}

// RateLimit throttles callers per principal (staff subject or client IP) and group.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewSlidingWindow(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		allowed, retryAfter := cfg.Limiter.Allow(rateLimitKey(c, group), rule.Limit, rule.Window)
		if allowed {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds(retryAfter)))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
			"retryAfterMs": retryAfter.Milliseconds(),
		})
	}
}

// rateLimitKey prefixes the bucket with the principal kind.
func rateLimitKey(c *gin.Context, group string) string {
	if subject := strings.TrimSpace(SubjectFromContext(c)); subject != "" {
		return "sub:" + subject + "|" + group
	}
	return "ip:" + strings.TrimSpace(c.ClientIP()) + "|" + group
}

// RetryAfterSeconds rounds a wait up to whole seconds, minimum one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs <= 0 {
		return 1
	}
	return secs
}
