package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"salesapi/config"
	"salesapi/handlers"
	"salesapi/logger"
	"salesapi/metrics"
	"salesapi/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.UsesDefaultSecret() {
		log.Warn("SECRET_KEY is not set, signing tokens with the development placeholder")
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	m := metrics.New()
	svc := service.NewService(st, log,
		service.WithMetrics(m),
		service.WithDateOrdering(cfg.ForecastSortByDate),
	)
	auth, err := service.NewAuthenticator(cfg.AuthUsername, cfg.AuthPassword, cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	h := handlers.NewHandler(svc, auth, log)

	srv := http.Server{
		Handler:      handlers.NewRouter(h, m, log, cfg.CORSOrigins),
		Addr:         cfg.Addr(),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
