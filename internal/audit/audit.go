// Package audit emite eventos de auditoría de la federación como logs estructurados
// (logger "audit"), separados del log operativo.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// Eventos emitidos.
const (
	EventLogin          = "federation.login"
	EventUserCreated    = "federation.user_created"
	EventTokenDeleted   = "federation.token_deleted"
	EventSignatureSSO   = "federation.signature_sso"
	EventServiceAccount = "federation.service_account"
)

// Log escribe un evento. Los campos nunca deben llevar tokens ni secretos.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	logger.From(ctx).Named("audit").Info(event, append(fields, zap.String("event", event))...)
}
