package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sideline-hq/sideline/config"
	"github.com/sideline-hq/sideline/db"
	"github.com/sideline-hq/sideline/handlers"
	"github.com/sideline-hq/sideline/realtime"
	"github.com/sideline-hq/sideline/repositories"
	api "github.com/sideline-hq/sideline/routes"
	"github.com/sideline-hq/sideline/services"
	"github.com/sideline-hq/sideline/storage"
	_ "github.com/lib/pq"
)

// reconcileInterval — период фоновой сверки списков состава ростеров.
const reconcileInterval = 60 * time.Second

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	rosterRepo := repositories.NewPostgresRosterRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	chatRepo := repositories.NewPostgresChatRepository(dbConn)
	messageRepo := repositories.NewPostgresMessageRepository(dbConn)
	requestRepo := repositories.NewPostgresRequestRepository(dbConn)
	feedbackRepo := repositories.NewPostgresFeedbackRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo, chatRepo, groupRepo, rosterRepo, cloudflareUploader, logger)
	groupService := services.NewGroupService(groupRepo, userRepo, cloudflareUploader)
	chatService := services.NewChatService(chatRepo, messageRepo, userRepo, cloudflareUploader, wsHub)
	rosterService := services.NewRosterService(rosterRepo, chatRepo, groupRepo, messageRepo, userRepo, cloudflareUploader, wsHub, logger)
	requestService := services.NewRequestService(requestRepo, rosterRepo, chatRepo, groupRepo, userRepo, cloudflareUploader, wsHub, logger)
	feedbackService := services.NewFeedbackService(feedbackRepo, userRepo)
	logger.Info("Services initialized")

	// Запуск фоновой сверки player_ids/players
	go func() {
		ticker := time.NewTicker(reconcileInterval)
		defer ticker.Stop()
		logger.Info("Roster reconciler started", slog.Duration("interval", reconcileInterval))

		if err := rosterService.ReconcileRosters(context.Background()); err != nil {
			logger.Error("Reconciler: initial run failed", slog.Any("error", err))
		}

		for range ticker.C {
			if err := rosterService.ReconcileRosters(context.Background()); err != nil {
				logger.Error("Reconciler: periodic run failed", slog.Any("error", err))
			}
		}
	}()

	// Инициализация обработчиков HTTP
	h := api.Handlers{
		Auth:      handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		User:      handlers.NewUserHandler(userService),
		Roster:    handlers.NewRosterHandler(rosterService),
		Group:     handlers.NewGroupHandler(groupService),
		Chat:      handlers.NewChatHandler(chatService),
		Request:   handlers.NewRequestHandler(requestService),
		Feedback:  handlers.NewFeedbackHandler(feedbackService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, chatService, cfg.JWTSecretKey, logger),
	}
	router := api.SetupRoutes(h, cfg.JWTSecretKey)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shut down gracefully")
		}
	}
}
