package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"waha-crm/internal/domain"
	"waha-crm/internal/service"
)

const operatorKey = "session_operator"

// SessionMiddleware exige una sesión de operador válida, tomada de la cookie
// de sesión o de un header Authorization Bearer.
func SessionMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		operator, ok := auth.Check(sessionToken(c))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			c.Abort()
			return
		}
		c.Set(operatorKey, operator)
		c.Next()
	}
}

// GetOperator obtiene el operador autenticado desde el contexto.
func GetOperator(c *gin.Context) (domain.Operator, bool) {
	val, ok := c.Get(operatorKey)
	if !ok {
		return domain.Operator{}, false
	}
	operator, ok := val.(domain.Operator)
	return operator, ok
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie != "" {
		return cookie
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
