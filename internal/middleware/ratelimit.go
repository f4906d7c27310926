package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/firma-api/internal/ratelimit"
	"github.com/sjperalta/firma-api/pkg/logger"
)

// RateLimit throttles a route per key. keyFn returning "" skips limiting for that request.
// A limiter error lets the request through.
func RateLimit(limiter ratelimit.Limiter, scope string, limit int, window time.Duration, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), scope+":"+key, limit, window)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("Rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}

		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Demasiados intentos, intente más tarde",
			})
			return
		}

		c.Next()
	}
}

// KeyByParam keys on a path parameter
func KeyByParam(name string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		return c.Param(name)
	}
}

// KeyByJSONField keys on a top-level string field of a JSON body. The body is
// restored for the handler.
func KeyByJSONField(field string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		if c.Request.Body == nil {
			return ""
		}
		original := c.Request.Body
		body, err := io.ReadAll(io.LimitReader(original, maxKeyedBody))
		c.Request.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), original), original}
		if err != nil {
			return ""
		}
		var fields map[string]json.RawMessage
		if json.Unmarshal(body, &fields) != nil {
			return ""
		}
		var value string
		if json.Unmarshal(fields[field], &value) != nil {
			return ""
		}
		return value
	}
}

const maxKeyedBody = 1 << 20
