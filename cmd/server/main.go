package main

// @title           Chat Backend API
// @version         1.0
// @description     Real-time chat backend with WebSocket fan-out
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"chat-backend/internal/api/routes"
	"chat-backend/internal/auth"
	"chat-backend/internal/config"
	"chat-backend/internal/database"
	"chat-backend/internal/kafka"
	"chat-backend/internal/repositories/postgres"
	"chat-backend/internal/services"
	"chat-backend/internal/storage"
	ws "chat-backend/internal/websocket"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting chat server")

	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := database.NewPostgresConnection(cfg.Database.URI())
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Repositories and services
	userRepo := postgres.NewUserRepository(db)
	chatRepo := postgres.NewChatRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	redisService := services.NewRedisService(redisClient)
	chatService := services.NewChatService(chatRepo, userRepo)
	messageService := services.NewMessageService(messageRepo, chatRepo)
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	verifier := auth.NewTokenVerifier(cfg.JWT.Secret)

	// Optional Kafka event journal
	var journal ws.Journal
	var journalCloser *kafka.EventJournal
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("Failed to connect to Kafka", "error", err)
			os.Exit(1)
		}
		journalCloser = kafka.NewEventJournal(producer, cfg.Kafka.Topic)
		journal = journalCloser
		defer journalCloser.Close()
	}

	// Optional MinIO attachment storage
	var fileStore *storage.MinIOClient
	if cfg.MinIO.Endpoint != "" {
		fileStore, err = storage.NewMinIOClient(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket)
		if err != nil {
			slog.Error("Failed to connect to MinIO", "error", err)
			os.Exit(1)
		}
	}

	// Real-time core
	registry := ws.NewRegistry()
	dispatcher := ws.NewDispatcher(registry, journal)
	pipeline := ws.NewPipeline(messageService, chatService, dispatcher)
	gateway := ws.NewGateway(registry, pipeline, verifier, redisService)

	router := routes.NewRouter(
		gateway,
		pipeline,
		authService,
		chatService,
		messageService,
		redisService,
		verifier,
		fileStore,
	)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gateway.Shutdown()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
