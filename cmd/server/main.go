package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/anatolev-dev/variantgate/internal/api"
	"github.com/anatolev-dev/variantgate/internal/audit"
	"github.com/anatolev-dev/variantgate/internal/config"
	"github.com/anatolev-dev/variantgate/internal/store"
	"github.com/anatolev-dev/variantgate/internal/telemetry"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load failed")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config validation failed")
	}
	if cfg.AppEnv == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	ctx := context.Background()
	st, err := store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.StoreType).Msg("store init failed")
	}
	defer st.Close()

	telemetry.Init()

	auditor := audit.NewRecorder(audit.LogSink{Logger: logger})
	defer auditor.Close()

	srvAPI := api.NewServer(api.Options{
		Store:           st,
		Env:             cfg.Env,
		AdminAPIKey:     cfg.AdminAPIKey,
		AdminAPIKeyHash: cfg.AdminAPIKeyHash,
		RateLimitPerIP:  cfg.RateLimitPerIP,
		Auditor:         auditor,
		Logger:          logger,
	})

	if err := srvAPI.RebuildSnapshot(ctx); err != nil {
		logger.Fatal().Err(err).Msg("initial snapshot failed")
	}
	logger.Info().Str("env", cfg.Env).Msg("snapshot loaded")

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0, // SSE stream must not be cut off
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	logger.Info().Msg("stopped")
}
