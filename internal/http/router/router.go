// Package router arma el árbol de rutas chi de la API de federación.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	fedctrl "github.com/dropDatabas3/federation/internal/http/controllers/federation"
	healthctrl "github.com/dropDatabas3/federation/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/federation/internal/http/errors"
	mw "github.com/dropDatabas3/federation/internal/http/middlewares"
	"github.com/dropDatabas3/federation/internal/metrics"
	"github.com/dropDatabas3/federation/internal/rate"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Federation *fedctrl.Controllers
	Health     *healthctrl.HealthController
	Sessions   mw.SessionParser

	// Opcionales: nil deshabilita el rate limit de la ruta.
	LoginLimiter rate.Limiter
	SSOLimiter   rate.Limiter

	// MetricsPath vacío no expone /metrics.
	MetricsPath string
}

// New crea el handler raíz con los middlewares globales.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		chimw.RealIP,
		mw.WithRequestID(),
		mw.WithMetrics(),
		mw.WithLogging(),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz)
		r.Get("/readyz", d.Health.Readyz)
	}
	if d.MetricsPath != "" {
		r.Method(http.MethodGet, d.MetricsPath, metrics.Handler())
	}

	RegisterFederationRoutes(r, d)
	return r
}
