package middlewares

import (
	"context"

	jwtx "github.com/dropDatabas3/federation/internal/jwt"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxSessionKey   ctxKey = "session"
)

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto. Vacío si no hay.
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}

// WithSession inyecta las claims de sesión validadas.
func WithSession(ctx context.Context, c *jwtx.SessionClaims) context.Context {
	return context.WithValue(ctx, ctxSessionKey, c)
}

// GetSession obtiene las claims de sesión. nil si el request no pasó por RequireSession.
func GetSession(ctx context.Context) *jwtx.SessionClaims {
	c, _ := ctx.Value(ctxSessionKey).(*jwtx.SessionClaims)
	return c
}
