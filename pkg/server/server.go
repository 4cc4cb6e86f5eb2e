package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/pkg/auth"
	"github.com/fieldops/dispatch-api/pkg/config"
	"github.com/fieldops/dispatch-api/pkg/database"
	"github.com/fieldops/dispatch-api/pkg/handlers"
	"github.com/fieldops/dispatch-api/pkg/logging"
	"github.com/fieldops/dispatch-api/pkg/metrics"
	"github.com/fieldops/dispatch-api/pkg/scheduler"
	"github.com/fieldops/dispatch-api/pkg/tenantlock"
)

// Server owns the dispatch service's long-lived resources.
type Server struct {
	Router *gin.Engine

	closers []func() error
	logger  zerolog.Logger
}

// New opens the database, picks the tenant locker and wires the router.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	s := &Server{logger: logging.Component(logger, "server")}

	db, err := database.Open(cfg.DatabaseURL, cfg.DataPath)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		s.closers = append(s.closers, sqlDB.Close)
	}
	store := database.NewStore(db)

	var locker scheduler.Locker
	if cfg.RedisAddr != "" {
		rl, err := tenantlock.NewRedis(tenantlock.RedisConfig{
			Addr:          cfg.RedisAddr,
			Password:      cfg.RedisPassword,
			DB:            cfg.RedisDB,
			LeaseDuration: cfg.LockTTL,
		}, logging.Component(logger, "tenantlock"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect tenant lock: %w", err)
		}
		s.closers = append(s.closers, rl.Close)
		locker = rl
		s.logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis tenant locks")
	} else {
		locker = tenantlock.NewLocal()
		s.logger.Info().Msg("using in-process tenant locks")
	}

	var rec *metrics.PromRecorder
	deps := scheduler.Deps{Directory: store, Jobs: store, Repo: store, Locker: locker}
	if cfg.MetricsEnabled {
		if rec, err = metrics.New(nil); err != nil {
			s.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		deps.Recorder = rec
	}

	h := &handlers.Handler{
		Dispatcher: scheduler.NewDispatcher(deps, cfg.Scheduler(), logger),
		Store:      store,
		Auth:       auth.New(cfg.JWTSecret, cfg.APIMasterSecret),
		Metrics:    rec,
		Location:   cfg.Location,
		Log:        logging.Component(logger, "http"),
	}
	s.Router = handlers.NewRouter(h)
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *Server) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Error().Err(err).Msg("close failed")
			if first == nil {
				first = err
			}
		}
	}
	s.closers = nil
	return first
}
