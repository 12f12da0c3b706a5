package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"equipment-maintenance-dashboard/config"
	"equipment-maintenance-dashboard/internal/api"
	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/dashboard"
	"equipment-maintenance-dashboard/internal/db"
	"equipment-maintenance-dashboard/internal/notification"
	"equipment-maintenance-dashboard/internal/session"
	"equipment-maintenance-dashboard/internal/slack"
	"equipment-maintenance-dashboard/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env file")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}

	logger := newLogger(cfg.Logging)
	logger.Info().Str("path", configPath).Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	appStore := store.NewGormStore(gormDB)

	sess := session.New()
	client := backend.NewClient(&cfg.Backend, sess, logger)
	signInCtx, signInCancel := context.WithTimeout(ctx, cfg.Backend.Timeout)
	err = client.SignIn(signInCtx)
	signInCancel()
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Backend.BaseURL).Msg("failed to sign in to the maintenance backend")
	}
	role := sess.Role()

	var (
		webpushOptions *webpush.Options
		pushPool       *notification.WorkerPool
	)
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pushPool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, logger)
		pushPool.Start(ctx)
	} else {
		logger.Warn().Msg("VAPID keys not configured, push notifications disabled")
	}

	var chat notification.ChatPoster
	if c := slack.NewClient(cfg.Slack.Token, cfg.Slack.ChannelID, logger); c != nil {
		c.Start(ctx)
		chat = c
	}

	live := api.NewLiveHub(cfg.Server.AllowedOrigins, logger)
	feed := notification.NewFeed(cfg.Sync.NoticeTTL)
	hub := notification.NewHub(feed, pushPool, chat, live, logger)

	view := dashboard.NewView(role, client, hub, dashboard.OptionsFrom(&cfg.Sync), logger)
	view.Observe(live)
	if err := view.Mount(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial sync failed, the dashboard starts empty")
	}

	handler := api.NewHandler(api.Deps{
		View:    view,
		Session: sess,
		Store:   appStore,
		Feed:    feed,
		Live:    live,
		WebPush: webpushOptions,
		Logger:  logger,
	})
	router := api.NewRouter(&cfg.Server, handler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           withCORS(cfg.Server.AllowedOrigins, router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Str("role", role.String()).Msg("dashboard server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server ListenAndServe")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutdown signal received, stopping services")

	view.Unmount()
	live.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown")
	}
	cancel()

	logger.Info().Msg("server gracefully stopped")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "dashboardd").Logger()
}

func withCORS(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"X-Cache", "Retry-After"},
	}).Handler(next)
}
