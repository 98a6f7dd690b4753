package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"waha-crm/internal/domain"
	"waha-crm/internal/email"
	"waha-crm/internal/repository"
	"waha-crm/internal/waha"
)

var ErrConversationClosed = errors.New("conversation closed")

// Broadcaster publica eventos hacia las consolas conectadas por websocket.
type Broadcaster interface {
	Broadcast(event domain.Event)
}

// NopBroadcaster descarta eventos; útil en scripts y tests.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(domain.Event) {}

// InboundMessage es un mensaje entrante normalizado desde el webhook de WAHA.
type InboundMessage struct {
	From          string // chat id de WhatsApp (telefone@c.us)
	Name          string
	Body          string
	MediaType     string
	MediaURL      string
	MediaFilename string
	MediaMimetype string
	MediaSize     int64
}

// ConversationService orquesta la recepción y el ruteo de mensajes: lead,
// conversación, persistencia, flujo de menú, autoresponder y eventos.
type ConversationService struct {
	logger        *zap.Logger
	leads         repository.LeadRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	gateway       waha.Gateway
	menu          *MenuEngine
	responder     *Autoresponder
	broadcaster   Broadcaster
	emailSender   email.Sender
	alertEmail    string
}

func NewConversationService(
	logger *zap.Logger,
	leads repository.LeadRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	gateway waha.Gateway,
	menu *MenuEngine,
	responder *Autoresponder,
	broadcaster Broadcaster,
	emailSender email.Sender,
	alertEmail string,
) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if menu == nil {
		menu = DefaultMenus()
	}
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &ConversationService{
		logger:        logger,
		leads:         leads,
		conversations: conversations,
		messages:      messages,
		gateway:       gateway,
		menu:          menu,
		responder:     responder,
		broadcaster:   broadcaster,
		emailSender:   emailSender,
		alertEmail:    alertEmail,
	}
}

// HandleInbound procesa un mensaje recibido del gateway.
func (s *ConversationService) HandleInbound(ctx context.Context, in InboundMessage) error {
	if strings.TrimSpace(in.From) == "" {
		return errors.New("inbound message without sender")
	}

	now := time.Now().UTC()
	lead, err := s.leads.UpsertByPhone(ctx, domain.Lead{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Phone:     in.From,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("upsert lead: %w", err)
	}

	conv, created, err := s.findOrCreateConversation(ctx, lead, now)
	if err != nil {
		return fmt.Errorf("resolve conversation: %w", err)
	}

	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Content:        in.Body,
		FromBot:        false,
		CreatedAt:      now,
	}
	if in.MediaType == domain.MediaTypeImage || in.MediaType == domain.MediaTypeDocument {
		msg.MediaType = in.MediaType
		msg.MediaURL = in.MediaURL
		msg.MediaFilename = in.MediaFilename
		msg.MediaMimetype = in.MediaMimetype
		msg.MediaSize = in.MediaSize
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("store message: %w", err)
	}
	s.broadcaster.Broadcast(domain.NewEvent(domain.EventMessageNew, msg))

	if err := s.conversations.TouchActivity(ctx, conv.ID, now); err != nil {
		s.logger.Warn("touch activity failed", zap.Error(err), zap.String("conversation_id", conv.ID))
	}

	if created {
		// Conversación nueva: el primer mensaje siempre recibe el menú.
		return s.sendBotReply(ctx, conv, s.menu.Render(conv.CurrentMenu))
	}

	switch conv.Status {
	case domain.ConversationStatusMenu:
		return s.routeMenu(ctx, conv, lead, in.Body)
	case domain.ConversationStatusAI:
		reply := s.responder.Reply(ctx, conv.ID, in.Body)
		return s.sendBotReply(ctx, conv, reply)
	default:
		// waiting/active: el operador conduce, el bot no responde.
		return nil
	}
}

// SendOperatorMessage envía texto del operador por el gateway y lo persiste.
func (s *ConversationService) SendOperatorMessage(ctx context.Context, conversationID, content string) (domain.Message, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return domain.Message{}, err
	}
	if !conv.Open() {
		return domain.Message{}, ErrConversationClosed
	}

	lead, err := s.leads.GetByID(ctx, conv.LeadID)
	if err != nil {
		return domain.Message{}, err
	}

	if err := s.gateway.SendText(ctx, lead.Phone, content); err != nil {
		return domain.Message{}, fmt.Errorf("gateway send: %w", err)
	}

	now := time.Now().UTC()
	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Content:        content,
		FromBot:        true,
		CreatedAt:      now,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return domain.Message{}, fmt.Errorf("store message: %w", err)
	}
	s.broadcaster.Broadcast(domain.NewEvent(domain.EventMessageNew, msg))

	// El primer envío del operador toma la conversación: waiting -> active.
	if conv.Status == domain.ConversationStatusWaiting || conv.Status == domain.ConversationStatusMenu || conv.Status == domain.ConversationStatusAI {
		if err := s.conversations.UpdateFlow(ctx, conv.ID, domain.ConversationStatusActive, conv.CurrentMenu, conv.CurrentStep); err != nil {
			s.logger.Warn("update flow failed", zap.Error(err), zap.String("conversation_id", conv.ID))
		} else {
			conv.Status = domain.ConversationStatusActive
			s.broadcaster.Broadcast(domain.NewEvent(domain.EventConversationUpdate, conv))
		}
	}
	if err := s.conversations.TouchActivity(ctx, conv.ID, now); err != nil {
		s.logger.Warn("touch activity failed", zap.Error(err), zap.String("conversation_id", conv.ID))
	}

	return msg, nil
}

// CloseConversation marca la conversación como cerrada y publica el cambio.
func (s *ConversationService) CloseConversation(ctx context.Context, conversationID string) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := s.conversations.Close(ctx, conv.ID, now); err != nil {
		return err
	}
	conv.Status = domain.ConversationStatusClosed
	conv.EndedAt = &now
	conv.LastActivityAt = now
	s.broadcaster.Broadcast(domain.NewEvent(domain.EventConversationUpdate, conv))
	return nil
}

func (s *ConversationService) findOrCreateConversation(ctx context.Context, lead domain.Lead, now time.Time) (domain.Conversation, bool, error) {
	conv, err := s.conversations.GetOpenByLeadID(ctx, lead.ID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, false, err
	}

	protocol, err := s.protocolFor(ctx, now)
	if err != nil {
		return domain.Conversation{}, false, err
	}

	conv = domain.Conversation{
		ID:             uuid.NewString(),
		LeadID:         lead.ID,
		Protocol:       protocol,
		Status:         domain.ConversationStatusMenu,
		CurrentMenu:    s.menu.RootID(),
		CurrentStep:    0,
		StartedAt:      now,
		LastActivityAt: now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return domain.Conversation{}, false, err
	}

	withLead := conv
	withLead.Lead = &lead
	s.broadcaster.Broadcast(domain.NewEvent(domain.EventConversationNew, withLead))
	return conv, true, nil
}

// protocolFor genera la etiqueta legible: fecha + secuencial del día.
func (s *ConversationService) protocolFor(ctx context.Context, now time.Time) (string, error) {
	count, err := s.conversations.CountStartedOn(ctx, now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", now.Format("20060102"), count+1), nil
}

func (s *ConversationService) routeMenu(ctx context.Context, conv domain.Conversation, lead domain.Lead, input string) error {
	result := s.menu.Handle(conv, input)

	if result.Status != conv.Status || result.Menu != conv.CurrentMenu || result.Step != conv.CurrentStep {
		if err := s.conversations.UpdateFlow(ctx, conv.ID, result.Status, result.Menu, result.Step); err != nil {
			return fmt.Errorf("update flow: %w", err)
		}
		conv.Status = result.Status
		conv.CurrentMenu = result.Menu
		conv.CurrentStep = result.Step
		s.broadcaster.Broadcast(domain.NewEvent(domain.EventConversationUpdate, conv))
	}

	if result.Escalate {
		s.notifyEscalation(conv, lead)
	}

	if result.Reply == "" {
		return nil
	}
	return s.sendBotReply(ctx, conv, result.Reply)
}

// notifyEscalation avisa al operador por correo; la falla solo se registra.
func (s *ConversationService) notifyEscalation(conv domain.Conversation, lead domain.Lead) {
	if s.emailSender == nil || s.alertEmail == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.emailSender.SendEscalationAlert(ctx, s.alertEmail, conv.Protocol, lead.Name, lead.Phone); err != nil {
			s.logger.Warn("escalation alert failed", zap.Error(err), zap.String("protocol", conv.Protocol))
		}
	}()
}

func (s *ConversationService) sendBotReply(ctx context.Context, conv domain.Conversation, text string) error {
	lead, err := s.leads.GetByID(ctx, conv.LeadID)
	if err != nil {
		return fmt.Errorf("load lead: %w", err)
	}
	if err := s.gateway.SendText(ctx, lead.Phone, text); err != nil {
		// El mensaje entrante ya quedó persistido; la respuesta fallida solo
		// se registra.
		s.logger.Error("bot reply send failed", zap.Error(err), zap.String("conversation_id", conv.ID))
		return nil
	}

	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Content:        text,
		FromBot:        true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("store bot message: %w", err)
	}
	s.broadcaster.Broadcast(domain.NewEvent(domain.EventMessageNew, msg))
	return nil
}
