package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/brightstock/imagery-backend/api/responses"
	"github.com/brightstock/imagery-backend/pkg/config"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/logger"
)

const envHeader = "X-BrightStock-Env"

// Pinger matches the health-check surface of the backing stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every wired dependency answers a
// ping. Nil dependencies are skipped so workers can reuse the handler.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
