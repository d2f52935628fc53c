// Package logger expone un logger Zap singleton con scoping por contexto.
//
// El middleware de request inyecta un logger con request_id; los services lo
// recuperan con From(ctx) y le agregan su capa y componente:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("federation.callback"))
//	log.Info("login completed", logger.ServiceName(svc.Name), logger.UserID(u.ID))
//
// Sin contexto se usa el singleton:
//
//	logger.L().Info("server started")
//
// Nunca loguear secretos (client_secret, access tokens, firmas). Para emails usar MaskedEmail.
package logger
