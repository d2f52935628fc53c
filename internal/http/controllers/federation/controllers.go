// Package federation contiene los controllers HTTP de la federación de identidad.
package federation

import (
	svc "github.com/dropDatabas3/federation/internal/http/services/federation"
)

// Config son las URLs del front a las que se redirige al terminar un login por navegador.
type Config struct {
	SuccessRedirect string
	ErrorRedirect   string
}

// Controllers agrupa todos los controllers del dominio federación.
type Controllers struct {
	Login             *LoginController
	ClientCredentials *ClientCredentialsController
	SignatureSSO      *SignatureSSOController
	Token             *TokenController
}

// NewControllers crea el agregador de controllers.
func NewControllers(s *svc.Services, cfg Config) *Controllers {
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/"
	}
	return &Controllers{
		Login:             NewLoginController(s, cfg),
		ClientCredentials: NewClientCredentialsController(s),
		SignatureSSO:      NewSignatureSSOController(s),
		Token:             NewTokenController(s),
	}
}
