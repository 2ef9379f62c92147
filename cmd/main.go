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

	"github.com/Dosada05/stream-follow/config"
	"github.com/Dosada05/stream-follow/db"
	"github.com/Dosada05/stream-follow/handlers"
	"github.com/Dosada05/stream-follow/live"
	"github.com/Dosada05/stream-follow/repositories"
	api "github.com/Dosada05/stream-follow/routes"
	"github.com/Dosada05/stream-follow/services"
	"github.com/Dosada05/stream-follow/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

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

	// Инициализация загрузчика файлов (Cloudflare R2). Без конфигурации
	// аватары просто недоступны, остальное работает.
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
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
	} else {
		logger.Warn("Cloudflare R2 is not configured, avatar uploads disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	starRepo := repositories.NewPostgresStarRepository(dbConn)
	streamRepo := repositories.NewPostgresStreamRepository(dbConn)
	calendarRepo := repositories.NewPostgresCalendarRepository(dbConn)
	playlistRepo := repositories.NewPostgresPlaylistRepository(dbConn)
	videoRepo := repositories.NewPostgresVideoRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(dbConn, userRepo, logger)
	starService := services.NewStarService(dbConn, userRepo, teamRepo, matchRepo, starRepo, calendarRepo, wsHub, logger)
	streamService := services.NewStreamService(dbConn, userRepo, teamRepo, matchRepo, streamRepo, calendarRepo, wsHub, logger)
	voteService := services.NewVoteService(dbConn, userRepo, playlistRepo, videoRepo, logger)
	matchService := services.NewMatchService(dbConn, matchRepo, teamRepo, streamRepo, starRepo, logger, cfg.PageSize)
	teamService := services.NewTeamService(dbConn, teamRepo, matchRepo, starRepo, logger, cfg.PageSize)
	streamerService := services.NewStreamerService(userRepo, streamRepo, starRepo, cfg.PageSize)
	userService := services.NewUserService(userRepo, calendarRepo, uploader, logger, cfg.PageSize)
	playlistService := services.NewPlaylistService(dbConn, playlistRepo, videoRepo, userRepo, logger, cfg.PageSize)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	userHandler := handlers.NewUserHandler(userService)
	teamHandler := handlers.NewTeamHandler(teamService)
	matchHandler := handlers.NewMatchHandler(matchService)
	streamerHandler := handlers.NewStreamerHandler(streamerService)
	starHandler := handlers.NewStarHandler(starService)
	streamHandler := handlers.NewStreamHandler(streamService)
	playlistHandler := handlers.NewPlaylistHandler(playlistService)
	voteHandler := handlers.NewVoteHandler(voteService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		userHandler,
		teamHandler,
		matchHandler,
		streamerHandler,
		starHandler,
		streamHandler,
		playlistHandler,
		voteHandler,
		webSocketHandler,
	)
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

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
