package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"waha-crm/internal/domain"
	"waha-crm/internal/repository"
	"waha-crm/internal/service"
)

// ConversationHandler expone el listado de conversaciones y sus mensajes.
type ConversationHandler struct {
	logger        *zap.Logger
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	chatSvc       *service.ConversationService
}

func NewConversationHandler(
	logger *zap.Logger,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	chatSvc *service.ConversationService,
) *ConversationHandler {
	return &ConversationHandler{
		logger:        logger,
		conversations: conversations,
		messages:      messages,
		chatSvc:       chatSvc,
	}
}

// List maneja GET /api/conversations.
func (h *ConversationHandler) List(c *gin.Context) {
	conversations, err := h.conversations.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list conversations"})
		return
	}
	if conversations == nil {
		conversations = []domain.Conversation{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// ListMessages maneja GET /api/conversations/:id/messages.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.conversations.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.logger.Error("load conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}

	messages, err := h.messages.ListByConversationID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list messages failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage maneja POST /api/conversations/:id/messages.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg, err := h.chatSvc.SendOperatorMessage(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		case errors.Is(err, service.ErrConversationClosed):
			c.JSON(http.StatusConflict, gin.H{"error": "conversation closed"})
		default:
			h.logger.Error("send message failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// Close maneja POST /api/conversations/:id/close.
func (h *ConversationHandler) Close(c *gin.Context) {
	if err := h.chatSvc.CloseConversation(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.logger.Error("close conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not close conversation"})
		return
	}
	c.Status(http.StatusNoContent)
}
