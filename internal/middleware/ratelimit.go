package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/osvitahub/backend/internal/model"
	"github.com/osvitahub/backend/internal/ratelimit"
)

// KeyFunc derives the limiter key for a request.
type KeyFunc func(c *gin.Context) string

// KeyByIP keys the limiter on the client's source address.
func KeyByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// KeyByUser keys the limiter on the authenticated principal, falling back
// to the source address when the request carries no identity. Must be
// registered after Authenticate to see the principal.
func KeyByUser(c *gin.Context) string {
	if p := PrincipalFrom(c); p != nil {
		return "user:" + p.ID
	}
	return KeyByIP(c)
}

// RateLimit applies limiter to each request keyed by keyFunc. Standard
// X-RateLimit headers go out on every response. When the limiter backend is
// unreachable the request is allowed and the failure logged; a cache outage
// must not take down all traffic.
func RateLimit(limiter *ratelimit.Limiter, keyFunc KeyFunc, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		decision, err := limiter.Admit(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter backend unavailable, allowing request",
				"key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Max()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.Fail(limiter.Message()))
			return
		}
		c.Next()
	}
}
