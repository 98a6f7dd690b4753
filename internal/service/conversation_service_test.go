package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"waha-crm/internal/domain"
	"waha-crm/internal/llm"
	"waha-crm/internal/waha"
)

type testHarness struct {
	svc           *ConversationService
	leads         *mockLeadRepo
	conversations *mockConversationRepo
	messages      *mockMessageRepo
	gateway       *waha.MockGateway
	broadcaster   *recordingBroadcaster
}

func newTestHarness() *testHarness {
	leads := newMockLeadRepo()
	conversations := newMockConversationRepo()
	messages := &mockMessageRepo{}
	gateway := &waha.MockGateway{}
	broadcaster := &recordingBroadcaster{}
	responder := NewAutoresponder(nil, &llm.MockClient{Response: "resposta automática"}, &mockKnowledgeRepo{}, messages)

	svc := NewConversationService(nil, leads, conversations, messages, gateway, DefaultMenus(), responder, broadcaster, nil, "")
	return &testHarness{
		svc:           svc,
		leads:         leads,
		conversations: conversations,
		messages:      messages,
		gateway:       gateway,
		broadcaster:   broadcaster,
	}
}

func (h *testHarness) inbound(t *testing.T, body string) {
	t.Helper()
	err := h.svc.HandleInbound(context.Background(), InboundMessage{
		From: "5511999@c.us",
		Name: "Maria",
		Body: body,
	})
	if err != nil {
		t.Fatalf("handle inbound: %v", err)
	}
}

func (h *testHarness) openConversation(t *testing.T) domain.Conversation {
	t.Helper()
	lead, err := h.leads.GetByPhone(context.Background(), "5511999@c.us")
	if err != nil {
		t.Fatalf("lead not found: %v", err)
	}
	conv, err := h.conversations.GetOpenByLeadID(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("conversation not found: %v", err)
	}
	return conv
}

func TestHandleInbound_NewConversationSendsMenu(t *testing.T) {
	h := newTestHarness()
	h.inbound(t, "oi")

	conv := h.openConversation(t)
	if conv.Status != domain.ConversationStatusMenu {
		t.Fatalf("expected menu status, got %q", conv.Status)
	}
	if !strings.HasPrefix(conv.Protocol, time.Now().UTC().Format("20060102")) {
		t.Fatalf("unexpected protocol label %q", conv.Protocol)
	}

	if len(h.gateway.SentTexts) != 1 {
		t.Fatalf("expected one gateway send (the menu), got %d", len(h.gateway.SentTexts))
	}
	if !strings.Contains(h.gateway.SentTexts[0].Text, "1 - ") {
		t.Fatalf("expected rendered menu, got %q", h.gateway.SentTexts[0].Text)
	}

	types := h.broadcaster.typesSeen()
	wantOrder := []string{domain.EventConversationNew, domain.EventMessageNew, domain.EventMessageNew}
	if len(types) != len(wantOrder) {
		t.Fatalf("unexpected events %v", types)
	}
	for i, want := range wantOrder {
		if types[i] != want {
			t.Fatalf("event %d: want %q, got %v", i, want, types)
		}
	}
}

func TestHandleInbound_MenuChoiceAIThenAutoReply(t *testing.T) {
	h := newTestHarness()
	h.inbound(t, "oi")
	h.inbound(t, "1")

	conv := h.openConversation(t)
	if conv.Status != domain.ConversationStatusAI {
		t.Fatalf("expected ai status, got %q", conv.Status)
	}

	h.inbound(t, "qual o horário?")
	lastSend := h.gateway.SentTexts[len(h.gateway.SentTexts)-1]
	if lastSend.Text != "resposta automática" {
		t.Fatalf("expected autoresponder reply, got %q", lastSend.Text)
	}
}

func TestHandleInbound_MenuChoiceHumanStopsBot(t *testing.T) {
	h := newTestHarness()
	h.inbound(t, "oi")
	h.inbound(t, "2")

	conv := h.openConversation(t)
	if conv.Status != domain.ConversationStatusWaiting {
		t.Fatalf("expected waiting status, got %q", conv.Status)
	}

	sendsBefore := len(h.gateway.SentTexts)
	h.inbound(t, "tem alguém aí?")
	if len(h.gateway.SentTexts) != sendsBefore {
		t.Fatalf("bot must not reply while waiting for operator")
	}
}

func TestHandleInbound_ReusesOpenConversation(t *testing.T) {
	h := newTestHarness()
	h.inbound(t, "oi")
	h.inbound(t, "0")

	if len(h.conversations.byID) != 1 {
		t.Fatalf("expected a single open conversation, got %d", len(h.conversations.byID))
	}
}

func TestHandleInbound_MediaMessagePersistsMetadata(t *testing.T) {
	h := newTestHarness()
	err := h.svc.HandleInbound(context.Background(), InboundMessage{
		From:          "5511999@c.us",
		Body:          "comprovante",
		MediaType:     domain.MediaTypeImage,
		MediaURL:      "https://waha/media/1.jpg",
		MediaFilename: "comprovante.jpg",
		MediaMimetype: "image/jpeg",
		MediaSize:     2048,
	})
	if err != nil {
		t.Fatalf("handle inbound: %v", err)
	}

	var stored *domain.Message
	for i := range h.messages.messages {
		if !h.messages.messages[i].FromBot {
			stored = &h.messages.messages[i]
		}
	}
	if stored == nil {
		t.Fatalf("inbound message not stored")
	}
	if !stored.HasMedia() || stored.MediaURL != "https://waha/media/1.jpg" || stored.MediaSize != 2048 {
		t.Fatalf("media metadata lost: %+v", stored)
	}
}

func TestHandleInbound_GatewayFailureDoesNotLoseInbound(t *testing.T) {
	h := newTestHarness()
	h.gateway.Err = errors.New("waha down")

	h.inbound(t, "oi")

	stored := 0
	for _, msg := range h.messages.messages {
		if !msg.FromBot {
			stored++
		}
	}
	if stored != 1 {
		t.Fatalf("inbound message must persist even when the gateway fails")
	}
}

func TestSendOperatorMessage_ActivatesConversation(t *testing.T) {
	h := newTestHarness()
	h.inbound(t, "oi")
	h.inbound(t, "2")

	conv := h.openConversation(t)
	msg, err := h.svc.SendOperatorMessage(context.Background(), conv.ID, "Olá, sou o atendente!")
	if err != nil {
		t.Fatalf("send operator message: %v", err)
	}
	if !msg.FromBot {
		t.Fatalf("operator messages are flagged from_bot for the lead-facing side")
	}

	conv = h.openConversation(t)
	if conv.Status != domain.ConversationStatusActive {
		t.Fatalf("expected active status after operator took over, got %q", conv.Status)
	}

	lastSend := h.gateway.SentTexts[len(h.gateway.SentTexts)-1]
	if lastSend.ChatID != "5511999@c.us" || lastSend.Text != "Olá, sou o atendente!" {
		t.Fatalf("unexpected gateway send %+v", lastSend)
	}
}

func TestSendOperatorMessage_RejectsClosedConversation(t *testing.T) {
	h := newTestHarness()
	h.inbound(t, "oi")

	conv := h.openConversation(t)
	if err := h.svc.CloseConversation(context.Background(), conv.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := h.svc.SendOperatorMessage(context.Background(), conv.ID, "oi"); !errors.Is(err, ErrConversationClosed) {
		t.Fatalf("expected ErrConversationClosed, got %v", err)
	}
}

func TestCloseConversation_BroadcastsUpdate(t *testing.T) {
	h := newTestHarness()
	h.inbound(t, "oi")

	conv := h.openConversation(t)
	if err := h.svc.CloseConversation(context.Background(), conv.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	closed, err := h.conversations.GetByID(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if closed.Status != domain.ConversationStatusClosed || closed.EndedAt == nil {
		t.Fatalf("conversation not closed: %+v", closed)
	}

	types := h.broadcaster.typesSeen()
	if types[len(types)-1] != domain.EventConversationUpdate {
		t.Fatalf("expected conversation:update broadcast, got %v", types)
	}
}
