package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"waha-crm/internal/waha"
)

// Configura el webhook de WAHA apuntando a la API. Se corre una vez por
// despliegue o cuando cambia la URL pública.
func main() {
	_ = godotenv.Load()

	baseURL := os.Getenv("WAHA_API")
	apiKey := os.Getenv("WAHA_API_KEY")
	session := os.Getenv("WAHA_SESSION")
	webhookURL := os.Getenv("WEBHOOK_URL")
	if session == "" {
		session = "default"
	}
	if baseURL == "" || apiKey == "" {
		log.Fatal("WAHA_API y WAHA_API_KEY son obligatorios")
	}
	if webhookURL == "" {
		log.Fatal("WEBHOOK_URL es obligatorio (ej: https://crm.example.com/api/webhooks/waha)")
	}

	logger := zap.NewExample()
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	gateway := waha.NewClient(baseURL, apiKey, session, logger)

	info, err := gateway.SessionStatus(ctx)
	if err != nil {
		log.Fatalf("no se pudo consultar la sesión %q: %v", session, err)
	}
	fmt.Printf("Sesión %q: estado %s\n", session, info.Status)

	if err := gateway.SetWebhook(ctx, webhookURL); err != nil {
		log.Fatalf("no se pudo configurar el webhook: %v", err)
	}
	fmt.Printf("Webhook configurado: %s\n", webhookURL)
}
