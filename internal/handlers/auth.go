package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/miniworld/modgen/internal/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminUsername is the only account the token endpoint knows.
const AdminUsername = "admin"

const tokenTTL = 12 * time.Hour

// AuthHandler issues admin tokens
type AuthHandler struct {
	jwtSecret    string
	passwordHash []byte
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler. passwordHash is a bcrypt hash;
// an empty hash disables token issuing.
func NewAuthHandler(jwtSecret, passwordHash string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{jwtSecret: jwtSecret, passwordHash: []byte(passwordHash), logger: logger}
}

// TokenRequest is the request body for the token endpoint
type TokenRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// TokenResponse is the response for the token endpoint
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

// Token exchanges admin credentials for a bearer token
//
// @Summary Issue an admin token
// @Tags auth
// @Param request body TokenRequest true "credentials"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	if len(h.passwordHash) == 0 {
		middleware.Forbidden(c, "admin login is not configured")
		return
	}
	if req.Username != AdminUsername {
		middleware.Unauthorized(c, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		h.logger.Warn("admin login failed", zap.String("client_ip", c.ClientIP()))
		middleware.Unauthorized(c, "invalid credentials")
		return
	}

	token, expiresAt, err := middleware.IssueToken(h.jwtSecret, req.Username, middleware.RoleAdmin, tokenTTL)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		middleware.InternalError(c, "internal server error")
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt, Role: middleware.RoleAdmin})
}
