// Package health contiene los controllers de liveness y readiness.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dropDatabas3/federation/internal/http/helpers"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// Check es una dependencia a verificar en readiness (cache, store).
type Check func(ctx context.Context) error

// HealthController expone /healthz y /readyz.
type HealthController struct {
	version string
	checks  map[string]Check
	timeout time.Duration
}

// NewHealthController crea el controller. checks puede ser nil.
func NewHealthController(version string, checks map[string]Check) *HealthController {
	return &HealthController{version: version, checks: checks, timeout: 2 * time.Second}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Healthz maneja GET /healthz (liveness).
func (c *HealthController) Healthz(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: c.version})
}

// Readyz maneja GET /readyz. 503 si alguna dependencia falla.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Version: c.version, Checks: map[string]string{}}
	status := http.StatusOK
	for _, name := range names {
		if err := c.checks[name](ctx); err != nil {
			logger.From(ctx).Warn("readiness check failed", logger.Component(name), logger.Err(err))
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}
	helpers.WriteJSON(w, status, resp)
}
