package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/rankpay/pkg/logger"
)

// HealthCheck probes one dependency, for example pg.Healthcheck(pool).
type HealthCheck func(context.Context) error

type namedCheck struct {
	name  string
	check HealthCheck
}

const healthCheckTimeout = 2 * time.Second

// LivenessHandler always answers 200; it only proves the process serves HTTP.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, map[string]any{"status": "alive"})
	}
}

// readinessHandler runs every check and answers 503 if any of them fails.
func readinessHandler(log *slog.Logger, checks ...namedCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					logger.Component(c.name),
					logger.Error(err),
				)
				results[c.name] = "failing"
				status = http.StatusServiceUnavailable
				continue
			}
			results[c.name] = "ok"
		}

		body := map[string]any{"status": "ready", "checks": results}
		if status != http.StatusOK {
			body["status"] = "not_ready"
		}
		writeHealth(w, status, body)
	}
}

func writeHealth(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
