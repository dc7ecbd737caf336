// Package http expone la superficie operativa del servicio: readiness y
// métricas Prometheus. No hay API de negocio acá.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Checker verifica una dependencia (store, cache).
type Checker func(ctx context.Context) error

// OpsConfig configura el router operativo.
type OpsConfig struct {
	// Checks por nombre que /readyz ejecuta.
	Checks map[string]Checker
	// Metrics sirve /metrics. nil = sin endpoint.
	Metrics http.Handler
	// CheckTimeout por check. Default 2s.
	CheckTimeout time.Duration
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewOpsRouter arma el router con /healthz, /readyz y /metrics.
func NewOpsRouter(cfg OpsConfig) http.Handler {
	timeout := cfg.CheckTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	r := chi.NewRouter()
	r.Use(WithRecover, WithLogging, WithMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		resp := readyResponse{Status: "ready", Checks: make(map[string]string, len(cfg.Checks))}
		status := http.StatusOK
		for name, check := range cfg.Checks {
			ctx, cancel := context.WithTimeout(req.Context(), timeout)
			err := check(ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		WriteJSON(w, status, resp)
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	return r
}
