package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aiswo-backend/internal/alerts"
	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/config"
	"aiswo-backend/internal/handlers"
	"aiswo-backend/internal/helpers"
	"aiswo-backend/internal/metrics"
	"aiswo-backend/internal/services"
	"aiswo-backend/internal/store"
	"aiswo-backend/internal/websocket"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	logger, err := helpers.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("═══════════════════════════════════════════════════════════════════")
	logger.Info("🚀 AISWO BACKEND SERVER STARTING")
	logger.Info("═══════════════════════════════════════════════════════════════════")

	if err := cfg.Validate(); err != nil {
		logger.Fatal("❌ Invalid configuration", zap.Error(err))
	}
	if cfg.JWTSecret == "" {
		logger.Warn("⚠️ APP_JWT_SECRET is not set, login and protected routes are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := helpers.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("❌ Failed to open store", zap.Error(err))
	}
	defer backend.Store.Close()

	metrics.Init()

	cache := store.NewSnapshotCache(backend.Store, cfg.SnapshotTTL)

	var generator chatbot.Generator = services.OfflineGenerator{}
	if cfg.Gemini.APIKey != "" {
		gemini, err := services.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			logger.Warn("⚠️ Gemini unavailable, running chatbot in offline mode", zap.Error(err))
		} else {
			generator = gemini
			logger.Info("✅ Gemini generator initialized", zap.String("model", cfg.Gemini.Model))
		}
	} else {
		logger.Info("ℹ️ GEMINI_API_KEY not set, chatbot fallback runs in offline mode")
	}

	history := chatbot.NewHistory(cfg.ChatHistorySize)
	assistant := chatbot.NewAssistant(cache, generator, history, backend.Store, logger)

	hub := websocket.NewHub(assistant, logger)
	go hub.Run(ctx)
	logger.Info("✅ WebSocket hub started")

	monitor := alerts.NewMonitor(cfg.AlertThreshold, logger, hub)
	if backend.FirebaseApp != nil && cfg.Firebase.AlertTopic != "" {
		fcm, err := services.NewFCMService(ctx, backend.FirebaseApp, cfg.Firebase.AlertTopic, logger)
		if err != nil {
			logger.Warn("⚠️ Failed to initialize FCM (push notifications disabled)", zap.Error(err))
		} else {
			monitor.AddNotifier(fcm)
			logger.Info("✅ Firebase Cloud Messaging initialized", zap.String("topic", cfg.Firebase.AlertTopic))
		}
	}
	if cfg.AlertPollInterval > 0 {
		go monitor.Run(ctx, cache, cfg.AlertPollInterval)
	}

	router := handlers.NewRouter(handlers.Deps{
		Store:     backend.Store,
		Assistant: assistant,
		Monitor:   monitor,
		Cache:     cache,
		Hub:       hub,
		JWTSecret: cfg.JWTSecret,
		Backend:   cfg.StoreBackend,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🎧 Server listening", zap.String("port", cfg.Port), zap.String("backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("❌ Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("✅ Server stopped")
}
