package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"waha-crm/internal/service"
)

const sessionCookie = "crm_session"

// AuthHandler expone login, check y logout del operador de la consola.
type AuthHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

func NewAuthHandler(logger *zap.Logger, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{logger: logger, auth: auth}
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, operator, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		return
	}

	maxAge := int(h.auth.SessionTTL().Seconds())
	c.SetCookie(sessionCookie, token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"isAuthenticated": true, "user": operator})
}

// Check maneja GET /api/auth/check. Un caller no autenticado recibe 200 con
// isAuthenticated=false, nunca un status de error.
func (h *AuthHandler) Check(c *gin.Context) {
	operator, ok := h.auth.Check(sessionToken(c))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"isAuthenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isAuthenticated": true, "user": operator})
}

// Logout maneja POST /api/auth/logout. Siempre limpia la cookie, falle o no
// la revocación del lado del store.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.Logout(sessionToken(c))
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}
