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

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/court-scheduler/config"
	"github.com/Dosada05/court-scheduler/db"
	"github.com/Dosada05/court-scheduler/handlers"
	"github.com/Dosada05/court-scheduler/hub"
	"github.com/Dosada05/court-scheduler/logging"
	"github.com/Dosada05/court-scheduler/middleware"
	"github.com/Dosada05/court-scheduler/repositories"
	api "github.com/Dosada05/court-scheduler/routes"
	"github.com/Dosada05/court-scheduler/services"
	"github.com/Dosada05/court-scheduler/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Connect(ctx, cfg.DatabaseURL, 5*time.Second, db.DefaultPoolConfig(), logger)
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

	// The service treats a nil Archiver as "archive disabled"; keep the
	// interface itself nil rather than wrapping a nil pointer.
	var archive services.Archiver
	if cfg.R2.Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, cfg.R2)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archive = storage.NewScheduleArchive(uploader, cfg.ArchivePrefix, logger)
		logger.Info("schedule archive enabled", slog.String("bucket", cfg.R2.BucketName))
	} else {
		logger.Info("schedule archive disabled, R2 is not configured")
	}

	wsHub := hub.New(cfg.Hub, logger)
	wsHub.Start(ctx)
	go logHubEvents(wsHub, logger)
	logger.Info("distribution hub started",
		slog.Int("max_per_tournament", cfg.Hub.MaxConnectionsPerTournament),
		slog.Int("max_total", cfg.Hub.MaxTotalConnections))

	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	scheduleService := services.NewScheduleService(
		services.ScheduleServiceConfig{MinPlayerGap: cfg.MinPlayerGap},
		matchRepo,
		wsHub,
		archive,
		logger,
	)

	auth := middleware.NewAuthenticator(cfg.JWTSecretKey, logger)
	router := chi.NewRouter()
	api.SetupRoutes(router, auth, cfg.CORSAllowedOrigins, api.Handlers{
		Schedule:  handlers.NewScheduleHandler(scheduleService, logger),
		WebSocket: handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
		Hub:       handlers.NewHubHandler(wsHub),
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
	}
	if err := scheduleService.Shutdown(shutdownCtx); err != nil {
		logger.Error("schedule service shutdown", slog.Any("error", err))
	}
	if err := wsHub.Shutdown(shutdownCtx); err != nil {
		logger.Error("hub shutdown", slog.Any("error", err))
	}
	logger.Info("application exited")
}

// logHubEvents drains hub signals into the log until the hub stops.
func logHubEvents(h *hub.Hub, logger *slog.Logger) {
	logger = logger.With("component", "hub_events")
	for ev := range h.Events() {
		level := slog.LevelDebug
		switch ev.Type {
		case hub.EventCapacityReached, hub.EventHighRate, hub.EventDeliveryFailed:
			level = slog.LevelWarn
		case hub.EventEvicted:
			level = slog.LevelInfo
		}
		logger.Log(context.Background(), level, string(ev.Type),
			slog.String("connection_id", ev.ConnectionID),
			slog.Int("tournament_id", ev.TournamentID),
			slog.String("detail", ev.Detail))
	}
}
