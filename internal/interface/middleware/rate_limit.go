package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
	"github.com/MjBots-creater/save-restricted-bot/pkg/response"
)

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request.
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP only.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath limits by client IP and route.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyByUserID limits authenticated admin calls per user and falls back to
// the IP for anonymous ones.
func KeyByUserID() KeyFunc {
	return func(c *gin.Context) string {
		if uid := c.GetInt64(CtxUserIDKey); uid != 0 {
			return "rl:admin:" + strconv.FormatInt(uid, 10)
		}
		return "rl:admin:anon:ip:" + ipFromCtx(c)
	}
}

type AllowFunc func(*gin.Context) bool // return true to bypass the limit

// AllowPrivateIP bypasses the limit for loopback and private addresses
// (probes, sidecars).
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		return parsed != nil && (parsed.IsLoopback() || parsed.IsPrivate())
	}
}

// RateLimit applies limiter per keyFn with the usual X-RateLimit headers.
// Redis errors fail open.
func RateLimit(limiter *helpers.RedisLimiter, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if limiter == nil || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		res, err := limiter.Allow(c.Request.Context(), keyFn(c))
		if err != nil || res.Limit == 0 {
			c.Next()
			return
		}
		resetSec := int(res.Reset.Seconds())
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if !res.Allowed {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
