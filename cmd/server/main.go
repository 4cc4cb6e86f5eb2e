package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/dispatch-api/pkg/config"
	"github.com/fieldops/dispatch-api/pkg/logging"
	"github.com/fieldops/dispatch-api/pkg/server"
)

func main() {
	// Load .env if it exists
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fallback := logging.Setup("production")
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.Setup(cfg.Environment)

	if os.Getenv("GIN_MODE") == "" && cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not initialize server")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("could not run server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown cleanup failed")
	}
}
