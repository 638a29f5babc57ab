package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/plateiq/restaurant-backend/api/responses"
	"github.com/plateiq/restaurant-backend/pkg/config"
	"github.com/plateiq/restaurant-backend/pkg/logger"
)

// Pinger is anything the readiness probe can reach out to.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PlateIQ-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing dependency answers a
// ping. Nil pingers are skipped so environments without Redis still report.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PlateIQ-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ready"}
		ready := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				if logg != nil {
					logg.Error(r.Context(), "health.ready dependency failed: "+name, err)
				}
				status[name] = "unreachable"
				ready = false
				continue
			}
			status[name] = "ok"
		}

		if !ready {
			status["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
