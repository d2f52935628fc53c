package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/federation/internal/http/errors"
	"github.com/dropDatabas3/federation/internal/metrics"
	"github.com/dropDatabas3/federation/internal/observability/logger"
	"github.com/dropDatabas3/federation/internal/rate"
)

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// IPServiceRateKey = <ip>|<service>|<name>
func IPServiceRateKey(name string) RateKeyFunc {
	return func(r *http.Request) string {
		return ClientIP(r) + "|" + chi.URLParam(r, "service") + "|" + name
	}
}

// WithRateLimit rechaza con 429 cuando el limiter lo indica. Si el limiter falla se deja pasar.
func WithRateLimit(name string, limiter rate.Limiter, key RateKeyFunc) Middleware {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if key == nil {
		key = IPServiceRateKey(name)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), key(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter error", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if res.WindowTTL > 0 {
				resetAt := time.Now().Add(res.WindowTTL).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				metrics.RateLimitRejects.WithLabelValues(name).Inc()
				errors.WriteError(w, errors.ErrRateLimitExceeded)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
