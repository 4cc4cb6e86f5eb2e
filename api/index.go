package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/dispatch-api/pkg/config"
	"github.com/fieldops/dispatch-api/pkg/logging"
	"github.com/fieldops/dispatch-api/pkg/server"
)

var r http.Handler

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	config.LoadDotEnv()

	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load()
	if err != nil {
		fallback := logging.Setup("production")
		fallback.Error().Err(err).Msg("invalid configuration")
		r = unavailable(err)
		return
	}
	logger := logging.Setup(cfg.Environment)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("could not initialize server")
		r = unavailable(err)
		return
	}
	r = srv.Router
}

func unavailable(err error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "service unavailable: "+err.Error(), http.StatusServiceUnavailable)
	})
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
