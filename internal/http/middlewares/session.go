package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/federation/internal/http/errors"
	jwtx "github.com/dropDatabas3/federation/internal/jwt"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// SessionParser valida session tokens (jwt.Issuer).
type SessionParser interface {
	Parse(token string) (*jwtx.SessionClaims, error)
}

// RequireSession exige Authorization: Bearer <session jwt>.
func RequireSession(p SessionParser) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			claims, err := p.Parse(raw)
			if err != nil {
				logger.From(r.Context()).Debug("session token rejected", logger.Err(err))
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			}
			ctx := WithSession(r.Context(), claims)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(claims.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extrae el token del header Authorization.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
