package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/opsgrid/sitepulse/internal/config"
	dbRedis "github.com/opsgrid/sitepulse/internal/db/redis"
	"github.com/opsgrid/sitepulse/internal/domain"
	logpkg "github.com/opsgrid/sitepulse/internal/logger"
	"github.com/opsgrid/sitepulse/internal/metrics"
	embeddingrepo "github.com/opsgrid/sitepulse/internal/repository/embedding"
	guidelinerepo "github.com/opsgrid/sitepulse/internal/repository/guideline"
	presencerepo "github.com/opsgrid/sitepulse/internal/repository/presence"
	"github.com/opsgrid/sitepulse/internal/secrets"
	chiTransport "github.com/opsgrid/sitepulse/internal/transport/chi"
	openaiTransport "github.com/opsgrid/sitepulse/internal/transport/openai"
	healthuc "github.com/opsgrid/sitepulse/internal/usecase/health"
	searchuc "github.com/opsgrid/sitepulse/internal/usecase/imagesearch"
	ingestuc "github.com/opsgrid/sitepulse/internal/usecase/ingest"
	loguc "github.com/opsgrid/sitepulse/internal/usecase/loganalytics"
	presenceuc "github.com/opsgrid/sitepulse/internal/usecase/presence"
	safetyuc "github.com/opsgrid/sitepulse/internal/usecase/safety"
	"github.com/opsgrid/sitepulse/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting sitepulse API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx := context.Background()

	// Store password: inline config first, then mounted secret file, then env.
	// An exhausted chain means an unauthenticated store, which is fine locally.
	dbPassword, err := secrets.NewChain("db_password", 5*time.Second, logger,
		secrets.Literal(cfg.Database.Password),
		secrets.File(cfg.Database.PasswordFile),
		secrets.Env("REDIS_PASSWORD"),
	).Resolve(ctx)
	if err != nil && !errors.Is(err, secrets.ErrNotResolved) {
		logger.Fatal("Failed to resolve store password", zap.Error(err))
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: dbPassword,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register telemetry metrics explicitly (no init())
	metrics.RegisterTelemetryMetrics()

	// AI key is optional: without it the safety features serve their static
	// fallback and natural-language search returns ai_unavailable.
	aiKey, err := secrets.NewChain("ai_api_key", 5*time.Second, logger,
		secrets.Literal(cfg.AI.APIKey),
		secrets.File(cfg.AI.APIKeyFile),
		secrets.Env("OPENAI_API_KEY"),
	).Resolve(ctx)
	if err != nil && !errors.Is(err, secrets.ErrNotResolved) {
		logger.Fatal("Failed to resolve AI API key", zap.Error(err))
	}

	// Pass nil interfaces (not typed nil pointers!) when AI is not configured.
	// Go gotcha: (*openaiTransport.Client)(nil) wrapped in domain.Embedder != nil.
	var embedder domain.Embedder
	var chatter domain.Chatter
	var aiChecker healthuc.AIChecker
	if aiKey != "" {
		ai := openaiTransport.New(&openaiTransport.Config{
			APIKey:     aiKey,
			BaseURL:    cfg.AI.BaseURL,
			EmbedModel: cfg.AI.EmbedModel,
			ChatModel:  cfg.AI.ChatModel,
			Timeout:    time.Duration(cfg.AI.TimeoutSec) * time.Second,
			Logger:     logger,
		})
		embedder = ai
		chatter = ai
		aiChecker = ai
		logger.Info("AI provider configured",
			zap.String("embed_model", cfg.AI.EmbedModel),
			zap.String("chat_model", cfg.AI.ChatModel),
		)
	} else {
		logger.Warn("AI provider not configured; safety analysis will use the static fallback")
	}

	// Repositories
	prefix := cfg.Storage.KeyPrefix
	deviceWindow := presencerepo.Devices(store, prefix)
	userWindow := presencerepo.Users(store, prefix)
	imageRepo := embeddingrepo.New(store, prefix)
	docRepo := guidelinerepo.New(store, prefix)

	// Use case services
	deviceIngest := ingestuc.NewDevices(deviceWindow, int64(cfg.Presence.DeviceWindowSec), logger)
	userIngest := ingestuc.NewUsers(userWindow, int64(cfg.Presence.UserWindowSec), logger)
	devicePresence := presenceuc.NewDevices(deviceWindow, int64(cfg.Presence.DeviceWindowSec), int64(cfg.Presence.DeviceListLimit))
	userPresence := presenceuc.NewUsers(userWindow, int64(cfg.Presence.UserWindowSec), int64(cfg.Presence.UserListLimit))
	imageSvc := searchuc.New(imageRepo, embedder)
	safetySvc := safetyuc.New(docRepo, imageSvc, embedder, chatter,
		cfg.AI.EmbedModel, cfg.AI.ChatModel, cfg.AI.MaxTokens, logger)
	logSvc := loguc.New(store, prefix)
	healthSvc := healthuc.New(store, aiChecker)

	server := chiTransport.NewServer(
		deviceIngest, userIngest,
		devicePresence, userPresence,
		imageSvc, safetySvc, logSvc, healthSvc,
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
