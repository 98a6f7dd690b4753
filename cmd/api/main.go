package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"waha-crm/internal/config"
	"waha-crm/internal/db"
	"waha-crm/internal/email"
	apihttp "waha-crm/internal/http"
	"waha-crm/internal/llm"
	"waha-crm/internal/repository"
	"waha-crm/internal/service"
	"waha-crm/internal/waha"
	"waha-crm/internal/ws"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	leadRepo := repository.NewPgLeadRepository(pool)
	conversationRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	knowledgeRepo := repository.NewPgKnowledgeRepository(pool)

	gateway := waha.NewClient(cfg.WAHABaseURL, cfg.WAHAAPIKey, cfg.WAHASession, logger)
	llmClient := llm.NewHTTPClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIEmbedding, logger)
	responder := service.NewAutoresponder(logger, llmClient, knowledgeRepo, messageRepo)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	sessionStore := service.NewMemorySessionStore()
	webhookLimiter := service.NewRateLimiter(time.Minute, 30)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory stores", zap.Error(err))
		} else {
			sessionStore = service.NewRedisSessionStore(redisClient)
			webhookLimiter = service.NewRedisRateLimiter(redisClient, time.Minute, 30)
		}
		cancel()
	}

	authSvc := service.NewAuthService(
		logger,
		cfg.Login,
		cfg.Senha,
		cfg.SessionSecret,
		time.Duration(cfg.SessionTTLHours)*time.Hour,
		sessionStore,
	)

	hub := ws.NewHub(logger)
	chatSvc := service.NewConversationService(
		logger,
		leadRepo,
		conversationRepo,
		messageRepo,
		gateway,
		service.DefaultMenus(),
		responder,
		hub,
		emailSender,
		cfg.AlertEmail,
	)

	authHandler := apihttp.NewAuthHandler(logger, authSvc)
	conversationHandler := apihttp.NewConversationHandler(logger, conversationRepo, messageRepo, chatSvc)
	webhookHandler := apihttp.NewWebhookHandler(logger, chatSvc, webhookLimiter, cfg.WebhookKey)
	router := apihttp.NewRouter(logger, authSvc, authHandler, conversationHandler, webhookHandler, hub)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
