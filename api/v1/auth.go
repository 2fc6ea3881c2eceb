package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/metrics"
	"github.com/defect-tracker/middleware"
	"github.com/defect-tracker/services"
	"github.com/gin-gonic/gin"
)

// AuthService issues and revokes access tokens
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	TTL() time.Duration
}

// AuthHandler serves the /auth endpoints
type AuthHandler struct {
	auth         AuthService
	cookieSecure bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure}
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	authResponse, err := h.auth.Login(c.Request.Context(), req)
	if errors.Is(err, services.ErrInvalidCredentials) {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"message": "Invalid email or password",
		})
		return
	}
	if err != nil {
		respondError(c, "Authentication failed", err)
		return
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	// Also returned in the body for clients that prefer Bearer auth
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		middleware.AccessTokenCookie,
		authResponse.Token,
		int(h.auth.TTL().Seconds()),
		"/",
		"",
		h.cookieSecure,
		true,
	)

	respondOK(c, http.StatusOK, authResponse)
}

// Logout clears the cookie and revokes the presented token
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.TokenFromRequest(c)); err != nil {
		respondError(c, "Failed to log out", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.cookieSecure, true)

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Logged out successfully",
	})
}

// Me returns the authenticated caller
func (h *AuthHandler) Me(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"message": "User not authenticated",
		})
		return
	}
	respondOK(c, http.StatusOK, caller)
}
