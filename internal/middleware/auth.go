// Package middleware holds the request-processing stages shared by both
// services: rate limiting, authentication, authorization, request logging
// and CORS. The stages compose as an ordered gin chain, never merged into
// one opaque check.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/osvitahub/backend/internal/model"
	"github.com/osvitahub/backend/internal/session"
	"github.com/osvitahub/backend/internal/token"
)

const principalKey = "auth_principal"

// Authenticate validates the bearer token on each request: signature and
// expiry first, then session liveness. Both services run the identical gate;
// a valid signature alone is never enough. On success the resolved principal
// is attached to the gin context.
func Authenticate(issuer *token.Issuer, registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthenticated(c, "No token provided")
			return
		}

		claims, err := issuer.Verify(raw)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrTokenExpired):
				abortUnauthenticated(c, "Token expired")
			default:
				abortUnauthenticated(c, "Invalid token")
			}
			return
		}

		// Fail closed: an unreachable registry reads as "not live".
		live, err := registry.IsLive(c.Request.Context(), claims.UserID())
		if err != nil || !live {
			abortUnauthenticated(c, "Session expired or invalid")
			return
		}

		c.Set(principalKey, &model.Principal{
			ID:    claims.UserID(),
			Email: claims.Email,
			Role:  claims.Role,
		})
		c.Next()
	}
}

// Authorize admits only principals whose role is in the permitted set. It
// must run after Authenticate; a request with no resolved principal is
// rejected as unauthenticated, not forbidden.
func Authorize(roles ...model.Role) gin.HandlerFunc {
	permitted := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		permitted[r] = struct{}{}
	}

	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p == nil {
			abortUnauthenticated(c, "Unauthorized")
			return
		}
		if _, ok := permitted[p.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, model.Fail("Forbidden: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the identity attached by Authenticate, or nil.
func PrincipalFrom(c *gin.Context) *model.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*model.Principal); ok {
			return p
		}
	}
	return nil
}

// SetPrincipal attaches a principal directly. Test hook.
func SetPrincipal(c *gin.Context, p *model.Principal) {
	c.Set(principalKey, p)
}

func bearerToken(value string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) {
		return "", false
	}
	raw := strings.TrimSpace(value[len(prefix):])
	return raw, raw != ""
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.Fail(message))
}
