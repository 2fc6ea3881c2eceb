package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/defect-tracker/models"
	"github.com/defect-tracker/services"
	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware
const (
	CallerKey = "caller"
	UserIDKey = "userId"
)

// AccessTokenCookie carries the token for browser clients
const AccessTokenCookie = "access_token"

// Authenticator resolves an access token into the calling user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Caller, error)
}

// TokenFromRequest reads the bearer token, falling back to the access_token cookie
func TokenFromRequest(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// AuthMiddleware rejects requests without a valid token and stores the caller in the context
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Authentication required",
			})
			return
		}

		caller, err := auth.Authenticate(c.Request.Context(), token)
		if errors.Is(err, services.ErrInvalidToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Invalid or expired token",
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "Failed to authenticate request",
			})
			return
		}

		c.Set(CallerKey, *caller)
		c.Set(UserIDKey, caller.UserID)
		c.Next()
	}
}

// CallerFrom returns the caller stored by AuthMiddleware
func CallerFrom(c *gin.Context) (models.Caller, bool) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return models.Caller{}, false
	}
	caller, ok := v.(models.Caller)
	return caller, ok
}
