package waha

import "context"

// MockGateway permite tests sin un gateway real.
type MockGateway struct {
	SentTexts  []SentText
	SentImages []SentMedia
	SentFiles  []SentMedia
	Session    SessionInfo
	WebhookURL string
	Err        error
}

type SentText struct {
	ChatID string
	Text   string
}

type SentMedia struct {
	ChatID string
	URL    string
	Extra  string
}

func (m *MockGateway) SendText(_ context.Context, chatID, text string) error {
	if m.Err != nil {
		return m.Err
	}
	m.SentTexts = append(m.SentTexts, SentText{ChatID: chatID, Text: text})
	return nil
}

func (m *MockGateway) SendImage(_ context.Context, chatID, url, caption string) error {
	if m.Err != nil {
		return m.Err
	}
	m.SentImages = append(m.SentImages, SentMedia{ChatID: chatID, URL: url, Extra: caption})
	return nil
}

func (m *MockGateway) SendFile(_ context.Context, chatID, url, filename string) error {
	if m.Err != nil {
		return m.Err
	}
	m.SentFiles = append(m.SentFiles, SentMedia{ChatID: chatID, URL: url, Extra: filename})
	return nil
}

func (m *MockGateway) SessionStatus(_ context.Context) (SessionInfo, error) {
	return m.Session, m.Err
}

func (m *MockGateway) SetWebhook(_ context.Context, webhookURL string) error {
	if m.Err != nil {
		return m.Err
	}
	m.WebhookURL = webhookURL
	return nil
}
