package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"waha-crm/internal/service"
	"waha-crm/internal/ws"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	auth *service.AuthService,
	authH *AuthHandler,
	convH *ConversationHandler,
	webhookH *WebhookHandler,
	hub *ws.Hub,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	api := r.Group("/api")
	api.Use(jsonContentTypeMiddleware())

	api.POST("/auth/login", authH.Login)
	api.GET("/auth/check", authH.Check)
	api.POST("/auth/logout", authH.Logout)

	api.POST("/webhooks/waha", webhookH.Handle)

	authorized := api.Group("")
	authorized.Use(SessionMiddleware(auth))
	authorized.GET("/conversations", convH.List)
	authorized.GET("/conversations/:id/messages", convH.ListMessages)
	authorized.POST("/conversations/:id/messages", convH.SendMessage)
	authorized.POST("/conversations/:id/close", convH.Close)

	r.GET("/ws", SessionMiddleware(auth), func(c *gin.Context) {
		hub.HandleConnection(c.Writer, c.Request)
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
