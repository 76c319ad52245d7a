package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockaggr/internal/auth"
	"stockaggr/internal/config"
	apperrors "stockaggr/internal/errors"
	"stockaggr/internal/logging"
)

// AuthHandler serves the admin login endpoint. There is one
// administrative account, configured with a bcrypt password hash.
type AuthHandler struct {
	jwtManager *auth.JWTManager
	admin      *config.AdminConfig
	log        *logging.Logger
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(jwtManager *auth.JWTManager, admin *config.AdminConfig, log *logging.Logger) *AuthHandler {
	return &AuthHandler{jwtManager: jwtManager, admin: admin, log: log}
}

// loginRequest is the body of POST /auth/login
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "username and password are required", err))
		return
	}

	if req.Username != h.admin.Username || !auth.VerifyPassword(h.admin.PasswordHash, req.Password) {
		h.log.WithField("username", req.Username).Warn("failed login attempt")
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeUnauthorized, "invalid credentials", nil))
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		respondError(c, apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to issue token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"token": token},
	})
}
