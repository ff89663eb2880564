package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mycelicmemory/core/internal/ratelimit"
)

// =============================================================================
// AUTH MIDDLEWARE
// =============================================================================

// APIKeyAuthMiddleware returns middleware that checks for a valid API key.
// Health endpoint is exempt. No-op if apiKey is empty.
func APIKeyAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		if c.Request.URL.Path == "/api/v1/health" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] == apiKey {
				c.Next()
				return
			}
		}

		if c.GetHeader("X-API-Key") == apiKey {
			c.Next()
			return
		}

		UnauthorizedError(c, "Invalid or missing API key")
		c.Abort()
	}
}

// =============================================================================
// RATE LIMIT MIDDLEWARE
// =============================================================================

// routeToToolCategory maps the two POST routes to rate limiter buckets;
// every other route maps to "".
func routeToToolCategory(path, method string) string {
	switch {
	case method == "POST" && strings.HasSuffix(path, "/memories"):
		return "store_memory"
	case method == "POST" && strings.HasSuffix(path, "/query"):
		return "query"
	default:
		return ""
	}
}

// RateLimitMiddleware returns middleware that rate-limits requests using the provided limiter
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		toolCategory := routeToToolCategory(c.Request.URL.Path, c.Request.Method)
		if toolCategory == "" {
			toolCategory = "default"
		}

		result := limiter.Allow(toolCategory)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			TooManyRequestsError(c, fmt.Sprintf("Rate limit exceeded for %s. Retry after %d seconds.", result.LimitType, retryAfter))
			c.Abort()
			return
		}

		c.Next()
	}
}

// =============================================================================
// BODY SIZE MIDDLEWARE
// =============================================================================

// MaxBodySizeMiddleware returns middleware that limits request body size
func MaxBodySizeMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && c.Request.ContentLength > maxBytes {
			PayloadTooLargeError(c, fmt.Sprintf("Request body too large. Maximum: %d bytes", maxBytes))
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// =============================================================================
// VALIDATION CONSTANTS
// =============================================================================

const (
	MaxContentLength = 100 * 1024 // 100KB
	MaxQueryLength   = 10 * 1024  // 10KB
	MaxLimit         = 1000
	DefaultLimit     = 10
	DefaultBodyLimit = 1 * 1024 * 1024 // 1MB
)

// =============================================================================
// VALIDATION HELPERS
// =============================================================================

// clampLimit ensures a top_k/limit value is within valid range
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// validateContent checks memory content for length
func validateContent(content string) error {
	if content == "" {
		return fmt.Errorf("content is required")
	}
	if len(content) > MaxContentLength {
		return fmt.Errorf("content too long: %d bytes (maximum: %d)", len(content), MaxContentLength)
	}
	return nil
}

// validateQuery checks a retrieval query string for length
func validateQuery(query string) error {
	if query == "" {
		return fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return fmt.Errorf("query too long: %d bytes (maximum: %d)", len(query), MaxQueryLength)
	}
	return nil
}
