// Package metrics define las métricas Prometheus del servicio de federación.
// Vive en un paquete propio para que services y middlewares lo importen sin ciclos.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ─── HTTP ───

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo",
	})

	RateLimitRejects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_rate_limit_rejects_total",
		Help: "Requests rechazadas por rate limit",
	}, []string{"route"})

	// ─── Federación ───

	// LoginsTotal por servicio, kind y resultado (ok|error).
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_logins_total",
		Help: "Logins federados completados por resultado",
	}, []string{"service", "kind", "result"})

	// NonceRejects por motivo (missing|mismatch).
	NonceRejects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_state_rejects_total",
		Help: "Callbacks rechazados por state inválido",
	}, []string{"reason"})

	UsersCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_users_created_total",
		Help: "Usuarios sombra creados",
	}, []string{"service"})

	CCFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_client_credentials_fetch_total",
		Help: "Fetches de token client credentials al proveedor",
	}, []string{"service", "result"})

	CCCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_client_credentials_cache_hits_total",
		Help: "Tokens client credentials servidos desde cache",
	}, []string{"service"})

	CCFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "federation_client_credentials_fetch_seconds",
		Help:    "Latencia del token endpoint en client credentials",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// SSOOutcomes por resultado (ok|invalid|expired|error).
	SSOOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_signature_sso_total",
		Help: "Handshakes SSO por firma por resultado",
	}, []string{"result"})
)

func all() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestsTotal, HTTPRequestDuration, HTTPInflight, RateLimitRejects,
		LoginsTotal, NonceRejects, UsersCreated,
		CCFetches, CCCacheHits, CCFetchDuration, SSOOutcomes,
	}
}

// Register registra todas las métricas (default registerer si reg es nil), ignorando duplicados.
func Register(reg prometheus.Registerer, extra ...prometheus.Collector) error {
	for _, c := range append(all(), extra...) {
		if err := registerCollector(reg, c); err != nil {
			return err
		}
	}
	return nil
}

// Handler expone /metrics sobre el gatherer global.
func Handler() http.Handler { return promhttp.Handler() }

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}
