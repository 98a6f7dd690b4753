package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"waha-crm/internal/domain"
	"waha-crm/internal/wsclient"
)

// Consola de atendimento por terminal: inicia sesión contra la API, se
// suscribe al feed de eventos por websocket y permite responder
// conversaciones sin abrir el frontend.
func main() {
	_ = godotenv.Load()

	apiURL := strings.TrimRight(os.Getenv("API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://localhost:5000"
	}
	username := os.Getenv("LOGIN")
	password := os.Getenv("SENHA")
	if username == "" || password == "" {
		log.Fatal("LOGIN y SENHA son obligatorios")
	}

	logger := zap.NewExample()
	defer logger.Sync()

	console := &console{
		apiURL: apiURL,
		http:   &http.Client{Timeout: 15 * time.Second},
		out:    os.Stdout,
	}
	if err := console.login(username, password); err != nil {
		log.Fatalf("login: %v", err)
	}
	fmt.Println("Sesión iniciada como", username)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := wsclient.New(wsclient.Config{
		URL:    wsURLFor(apiURL),
		Header: http.Header{"Authorization": []string{"Bearer " + console.token}},
		Logger: logger,
		Handler: func(event domain.Event) {
			printEvent(os.Stdout, event)
		},
	})
	client.Connect(ctx)
	defer client.Close()

	fmt.Println("Comandos: list | msgs <id> | send <id> <texto> | close <id> | status | quit")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return
		case "status":
			fmt.Printf("conexión: %s (reintentos: %d)\n", client.State(), client.Attempts())
		case "list":
			console.listConversations()
		case "msgs":
			if len(fields) < 2 {
				fmt.Println("uso: msgs <id>")
				continue
			}
			console.listMessages(fields[1])
		case "send":
			if len(fields) < 3 {
				fmt.Println("uso: send <id> <texto>")
				continue
			}
			console.sendMessage(fields[1], strings.Join(fields[2:], " "))
		case "close":
			if len(fields) < 2 {
				fmt.Println("uso: close <id>")
				continue
			}
			console.closeConversation(fields[1])
		default:
			fmt.Println("comando desconocido:", fields[0])
		}
	}
}

type console struct {
	apiURL string
	http   *http.Client
	token  string
	out    io.Writer
}

func (c *console) login(username, password string) error {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := c.http.Post(c.apiURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "crm_session" {
			c.token = cookie.Value
			return nil
		}
	}
	return fmt.Errorf("login response without session cookie")
}

func (c *console) request(method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.apiURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func (c *console) listConversations() {
	resp, err := c.request(http.MethodGet, "/api/conversations", nil)
	if err != nil {
		fmt.Fprintln(c.out, "error:", err)
		return
	}
	defer resp.Body.Close()

	var payload struct {
		Conversations []domain.Conversation `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		fmt.Fprintln(c.out, "respuesta inválida:", err)
		return
	}
	if len(payload.Conversations) == 0 {
		fmt.Fprintln(c.out, "sin conversaciones")
		return
	}
	for _, conv := range payload.Conversations {
		name := conv.LeadID
		if conv.Lead != nil && conv.Lead.Name != "" {
			name = conv.Lead.Name
		}
		fmt.Fprintf(c.out, "%s  [%s]  %s  protocolo %s\n", conv.ID, conv.Status, name, conv.Protocol)
	}
}

func (c *console) listMessages(id string) {
	resp, err := c.request(http.MethodGet, "/api/conversations/"+url.PathEscape(id)+"/messages", nil)
	if err != nil {
		fmt.Fprintln(c.out, "error:", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		fmt.Fprintln(c.out, "conversación no encontrada")
		return
	}

	var payload struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		fmt.Fprintln(c.out, "respuesta inválida:", err)
		return
	}
	for _, msg := range payload.Messages {
		who := "lead"
		if msg.FromBot {
			who = "nosotros"
		}
		fmt.Fprintf(c.out, "[%s] %s: %s\n", msg.CreatedAt.Format("15:04"), who, msg.Content)
	}
}

func (c *console) sendMessage(id, text string) {
	body, _ := json.Marshal(map[string]string{"content": text})
	resp, err := c.request(http.MethodPost, "/api/conversations/"+url.PathEscape(id)+"/messages", body)
	if err != nil {
		fmt.Fprintln(c.out, "error:", err)
		return
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusCreated:
		fmt.Fprintln(c.out, "enviado")
	case http.StatusNotFound:
		fmt.Fprintln(c.out, "conversación no encontrada")
	case http.StatusConflict:
		fmt.Fprintln(c.out, "conversación cerrada")
	default:
		fmt.Fprintln(c.out, "error: status", resp.StatusCode)
	}
}

func (c *console) closeConversation(id string) {
	resp, err := c.request(http.MethodPost, "/api/conversations/"+url.PathEscape(id)+"/close", nil)
	if err != nil {
		fmt.Fprintln(c.out, "error:", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		fmt.Fprintln(c.out, "cerrada")
		return
	}
	fmt.Fprintln(c.out, "error: status", resp.StatusCode)
}

func wsURLFor(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil {
		return apiURL + "/ws"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String()
}

func printEvent(out io.Writer, event domain.Event) {
	switch event.Type {
	case domain.EventMessageNew:
		var msg domain.Message
		if err := json.Unmarshal(event.Data, &msg); err != nil {
			return
		}
		who := "lead"
		if msg.FromBot {
			who = "nosotros"
		}
		fmt.Fprintf(out, "\n[%s] %s @ %s: %s\n> ", msg.CreatedAt.Format("15:04"), who, msg.ConversationID, msg.Content)
	case domain.EventConversationUpdate, domain.EventConversationNew:
		var conv domain.Conversation
		if err := json.Unmarshal(event.Data, &conv); err != nil {
			return
		}
		fmt.Fprintf(out, "\n[conversación %s] estado: %s\n> ", conv.ID, conv.Status)
	}
}
