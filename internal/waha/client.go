package waha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Gateway define las operaciones usadas contra el gateway de WhatsApp.
type Gateway interface {
	SendText(ctx context.Context, chatID, text string) error
	SendImage(ctx context.Context, chatID, url, caption string) error
	SendFile(ctx context.Context, chatID, url, filename string) error
	SessionStatus(ctx context.Context) (SessionInfo, error)
	SetWebhook(ctx context.Context, webhookURL string) error
}

// SessionInfo es el estado de la sesión reportado por WAHA.
type SessionInfo struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Client habla con la API HTTP de WAHA.
type Client struct {
	baseURL string
	apiKey  string
	session string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL, apiKey, session string, logger *zap.Logger) *Client {
	if session == "" {
		session = "default"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		session: session,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	payload := map[string]any{
		"session": c.session,
		"chatId":  chatID,
		"text":    text,
	}
	return c.post(ctx, "/api/sendText", payload)
}

func (c *Client) SendImage(ctx context.Context, chatID, url, caption string) error {
	payload := map[string]any{
		"session": c.session,
		"chatId":  chatID,
		"file":    map[string]string{"url": url},
		"caption": caption,
	}
	return c.post(ctx, "/api/sendImage", payload)
}

func (c *Client) SendFile(ctx context.Context, chatID, url, filename string) error {
	payload := map[string]any{
		"session": c.session,
		"chatId":  chatID,
		"file":    map[string]string{"url": url, "filename": filename},
	}
	return c.post(ctx, "/api/sendFile", payload)
}

func (c *Client) SessionStatus(ctx context.Context) (SessionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sessions/"+c.session, nil)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		c.logger.Warn("waha session lookup failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return SessionInfo{}, fmt.Errorf("waha http error: status=%d", resp.StatusCode)
	}

	var info SessionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return SessionInfo{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return info, nil
}

// SetWebhook actualiza la configuración de la sesión para entregar eventos
// de mensajes en webhookURL.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	payload := map[string]any{
		"config": map[string]any{
			"webhooks": []map[string]any{
				{
					"url":    webhookURL,
					"events": []string{"message", "message.any"},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/sessions/"+c.session, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("waha webhook update failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return fmt.Errorf("waha http error: status=%d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("waha send failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return fmt.Errorf("waha http error: status=%d", resp.StatusCode)
	}
	return nil
}
