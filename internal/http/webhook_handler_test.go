package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"waha-crm/internal/domain"
	"waha-crm/internal/llm"
	"waha-crm/internal/service"
	"waha-crm/internal/waha"
)

type webhookFixture struct {
	router   *gin.Engine
	leads    *mockLeadRepo
	messages *mockMessageRepo
	gateway  *waha.MockGateway
}

func setupWebhook(apiKey string) *webhookFixture {
	gin.SetMode(gin.TestMode)
	leads := newMockLeadRepo()
	conversations := newMockConversationRepo()
	messages := &mockMessageRepo{}
	gateway := &waha.MockGateway{}
	responder := service.NewAutoresponder(nil, &llm.MockClient{Response: "ok"}, nil, messages)
	chatSvc := service.NewConversationService(nil, leads, conversations, messages, gateway, nil, responder, nil, nil, "")
	handler := NewWebhookHandler(zap.NewNop(), chatSvc, nil, apiKey)

	r := gin.New()
	r.POST("/api/webhooks/waha", handler.Handle)
	return &webhookFixture{router: r, leads: leads, messages: messages, gateway: gateway}
}

func (f *webhookFixture) post(body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/waha", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestWebhook_InboundTextMessage(t *testing.T) {
	f := setupWebhook("")

	w := f.post(`{
		"event": "message",
		"session": "default",
		"payload": {
			"id": "wa-1",
			"from": "5511999@c.us",
			"fromMe": false,
			"body": "oi",
			"_data": {"notifyName": "Maria"}
		}
	}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, err := f.leads.GetByPhone(context.Background(), "5511999@c.us"); err != nil {
		t.Fatalf("lead not created: %v", err)
	}
	if len(f.gateway.SentTexts) != 1 || !strings.Contains(f.gateway.SentTexts[0].Text, "1 - ") {
		t.Fatalf("expected menu reply, got %+v", f.gateway.SentTexts)
	}
}

func TestWebhook_MediaMessageKeepsMetadata(t *testing.T) {
	f := setupWebhook("")

	w := f.post(`{
		"event": "message",
		"payload": {
			"from": "5511999@c.us",
			"body": "segue o comprovante",
			"hasMedia": true,
			"media": {"url": "https://waha/media/1.jpg", "mimetype": "image/jpeg", "filename": "c.jpg", "size": 512}
		}
	}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var inbound *domain.Message
	for i := range f.messages.messages {
		if !f.messages.messages[i].FromBot {
			inbound = &f.messages.messages[i]
		}
	}
	if inbound == nil || inbound.MediaType != domain.MediaTypeImage || inbound.MediaSize != 512 {
		t.Fatalf("media metadata lost: %+v", inbound)
	}
}

func TestWebhook_IgnoresOwnMessages(t *testing.T) {
	f := setupWebhook("")

	w := f.post(`{"event": "message", "payload": {"from": "5511999@c.us", "fromMe": true, "body": "eco"}}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.messages.messages) != 0 {
		t.Fatalf("fromMe events must be ignored")
	}
}

func TestWebhook_IgnoresNonMessageEvents(t *testing.T) {
	f := setupWebhook("")

	w := f.post(`{"event": "session.status", "payload": {}}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.messages.messages) != 0 {
		t.Fatalf("non-message events must be ignored")
	}
}

func TestWebhook_RejectsBadAPIKey(t *testing.T) {
	f := setupWebhook("hook-key")

	w := f.post(`{"event": "message", "payload": {"from": "x@c.us", "body": "oi"}}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	w = f.post(`{"event": "message", "payload": {"from": "x@c.us", "body": "oi"}}`,
		map[string]string{"X-Api-Key": "hook-key"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", w.Code)
	}
}

func TestWebhook_RejectsUndecodableBody(t *testing.T) {
	f := setupWebhook("")

	w := f.post(`{"event":`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMediaTypeFor(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":      domain.MediaTypeImage,
		"image/png":       domain.MediaTypeImage,
		"application/pdf": domain.MediaTypeDocument,
		"audio/ogg":       domain.MediaTypeDocument,
		"":                "",
	}
	for mimetype, want := range cases {
		if got := mediaTypeFor(mimetype); got != want {
			t.Fatalf("mediaTypeFor(%q) = %q, want %q", mimetype, got, want)
		}
	}
}
