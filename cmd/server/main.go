// Mentalyze - Mental Health Assistant Backend
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/mentalyze/server/internal/analysis"
	"github.com/mentalyze/server/internal/api"
	"github.com/mentalyze/server/internal/assessment"
	"github.com/mentalyze/server/internal/config"
	"github.com/mentalyze/server/internal/dialog"
	"github.com/mentalyze/server/internal/identity"
	"github.com/mentalyze/server/internal/middleware"
	"github.com/mentalyze/server/internal/mood"
	"github.com/mentalyze/server/internal/session"
	"github.com/mentalyze/server/internal/transcript"
	"github.com/mentalyze/server/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "backend", cfg.AnalysisBackend, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	moods, err := mood.NewSQLite(cfg.MoodDBPath)
	if err != nil {
		slog.Error("Failed to initialize mood store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := moods.Close(); closeErr != nil {
			slog.Error("Failed to close mood store", "error", closeErr)
		}
	}()

	if err := moods.Ping(context.Background()); err != nil {
		slog.Error("Mood store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Mood store connected", "path", cfg.MoodDBPath)

	var transcripts transcript.Logger = transcript.Noop{}
	if cfg.Transcript.Enabled {
		fileLogger, err := transcript.NewFileLogger(transcript.Config{
			Dir:           cfg.Transcript.Dir,
			GlobalEnabled: cfg.Transcript.GlobalEnabled,
			GlobalPath:    cfg.Transcript.GlobalPath,
			QueueSize:     cfg.Transcript.QueueSize,
		})
		if err != nil {
			slog.Error("Failed to initialize transcript logger", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := fileLogger.Close(); closeErr != nil {
				slog.Error("Failed to close transcript logger", "error", closeErr)
			}
		}()
		transcripts = fileLogger
		slog.Info("Transcript logging enabled", "dir", cfg.Transcript.Dir)
	}

	var client analysis.Client
	switch cfg.AnalysisBackend {
	case config.BackendLocal:
		client = analysis.NewLocalClient()
		slog.Info("Using local sentiment backend")
	default:
		client = analysis.NewTogetherClient(analysis.TogetherOptions{
			APIKey:    cfg.TogetherAPIKey,
			URL:       cfg.TogetherURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.RequestTimeout,
		})
		if cfg.TogetherAPIKey == "" {
			slog.Warn("TOGETHER_API_KEY not set; analysis calls will degrade to diagnostics")
		}
	}

	bank, err := assessment.NewQuestionBank(cfg.Questions)
	if err != nil {
		slog.Error("Failed to build question bank", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	store := session.NewStore()
	engine := assessment.NewEngine(bank, store, client)
	policy := identity.Policy{AnonymousName: cfg.AnonymousUsername}
	router := dialog.NewRouter(store, engine, client, cfg.Persona, policy, transcripts)

	// Initialize handlers.
	handler := api.NewHandler(router, moods)
	wsHandler := api.NewWebSocketHandler(router, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	corsOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		corsOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(corsOrigins))

	handler.RegisterRoutes(r)

	// WebSocket chat channel.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend.
	r.Handle("/*", web.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
