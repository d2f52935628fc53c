package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/federation/internal/http/middlewares"
)

// RegisterFederationRoutes registra las rutas /api/v2 de federación.
func RegisterFederationRoutes(r chi.Router, d Deps) {
	c := d.Federation

	r.Route("/api/v2", func(r chi.Router) {
		r.Use(mw.WithNoStore())

		// GET /api/v2/oauth/callback - callback sin servicio en el path (se resuelve por state)
		r.Get("/oauth/callback", c.Login.GenericCallback)

		r.Route("/{service}", func(r chi.Router) {
			r.With(mw.WithRateLimit("login", d.LoginLimiter, nil)).Get("/login", c.Login.Login)

			r.Get("/callback", c.Login.Callback)
			r.Post("/callback", c.Login.Callback)

			r.Post("/sso", c.Login.SSO)

			r.Get("/client_credentials", c.ClientCredentials.Get)
			r.Post("/client_credentials", c.ClientCredentials.Refresh)
			r.Delete("/client_credentials", c.ClientCredentials.Clear)
			r.Get("/client_credentials/status", c.ClientCredentials.Status)

			r.Group(func(r chi.Router) {
				r.Use(mw.WithRateLimit("sso", d.SSOLimiter, nil))
				r.Get("/heroku/sso", c.SignatureSSO.SSO)
				r.Post("/heroku/sso", c.SignatureSSO.SSO)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireSession(d.Sessions))
				r.Get("/token", c.Token.Get)
				r.Delete("/token", c.Token.Delete)
			})
		})
	})
}
