package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"waha-crm/internal/domain"
	"waha-crm/internal/service"
)

// wahaEvent es el sobre que WAHA entrega en el webhook.
type wahaEvent struct {
	Event   string      `json:"event"`
	Session string      `json:"session"`
	Payload wahaPayload `json:"payload"`
}

type wahaPayload struct {
	ID       string     `json:"id"`
	From     string     `json:"from"`
	FromMe   bool       `json:"fromMe"`
	Body     string     `json:"body"`
	HasMedia bool       `json:"hasMedia"`
	Media    *wahaMedia `json:"media,omitempty"`
	Data     struct {
		NotifyName string `json:"notifyName"`
	} `json:"_data"`
}

type wahaMedia struct {
	URL      string `json:"url"`
	Mimetype string `json:"mimetype"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// WebhookHandler recibe eventos del gateway y los pasa al orquestador.
type WebhookHandler struct {
	logger  *zap.Logger
	chatSvc *service.ConversationService
	limiter service.RateLimiter
	apiKey  string
}

func NewWebhookHandler(logger *zap.Logger, chatSvc *service.ConversationService, limiter service.RateLimiter, apiKey string) *WebhookHandler {
	return &WebhookHandler{
		logger:  logger,
		chatSvc: chatSvc,
		limiter: limiter,
		apiKey:  apiKey,
	}
}

// Handle maneja POST /api/webhooks/waha. Los errores de procesamiento
// devuelven 200 igual: un 5xx haría que WAHA reintente y duplique mensajes.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if h.apiKey != "" && c.GetHeader("X-Api-Key") != h.apiKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}

	var event wahaEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("undecodable webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if !strings.HasPrefix(event.Event, "message") {
		c.Status(http.StatusOK)
		return
	}
	if event.Payload.FromMe || strings.TrimSpace(event.Payload.From) == "" {
		c.Status(http.StatusOK)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(event.Payload.From) {
		h.logger.Warn("webhook rate limited", zap.String("from", event.Payload.From))
		c.Status(http.StatusOK)
		return
	}

	inbound := service.InboundMessage{
		From: event.Payload.From,
		Name: event.Payload.Data.NotifyName,
		Body: event.Payload.Body,
	}
	if event.Payload.HasMedia && event.Payload.Media != nil {
		inbound.MediaType = mediaTypeFor(event.Payload.Media.Mimetype)
		inbound.MediaURL = event.Payload.Media.URL
		inbound.MediaFilename = event.Payload.Media.Filename
		inbound.MediaMimetype = event.Payload.Media.Mimetype
		inbound.MediaSize = event.Payload.Media.Size
	}

	if err := h.chatSvc.HandleInbound(c.Request.Context(), inbound); err != nil {
		h.logger.Error("inbound processing failed",
			zap.Error(err),
			zap.String("from", event.Payload.From),
		)
	}
	c.Status(http.StatusOK)
}

func mediaTypeFor(mimetype string) string {
	if strings.HasPrefix(mimetype, "image/") {
		return domain.MediaTypeImage
	}
	if mimetype == "" {
		return ""
	}
	return domain.MediaTypeDocument
}
