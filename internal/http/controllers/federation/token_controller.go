package federation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/federation/internal/http/dto/federation"
	httperrors "github.com/dropDatabas3/federation/internal/http/errors"
	"github.com/dropDatabas3/federation/internal/http/helpers"
	mw "github.com/dropDatabas3/federation/internal/http/middlewares"
	svc "github.com/dropDatabas3/federation/internal/http/services/federation"
)

// TokenController expone el token del proveedor guardado para el usuario de la sesión.
// Requiere mw.RequireSession en la ruta.
type TokenController struct {
	services *svc.Services
}

func NewTokenController(s *svc.Services) *TokenController {
	return &TokenController{services: s}
}

// Get maneja GET /api/v2/{service}/token
func (c *TokenController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := mw.GetSession(ctx)
	if sess == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	service, err := c.services.ResolveService(ctx, chi.URLParam(r, "service"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	tok, err := c.services.Tokens.Get(ctx, service.ID, sess.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tok == "" {
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("no token stored for this service"))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.TokenResponse{Service: service.Name, Token: tok})
}

// Delete maneja DELETE /api/v2/{service}/token
func (c *TokenController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := mw.GetSession(ctx)
	if sess == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	service, err := c.services.ResolveService(ctx, chi.URLParam(r, "service"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.services.Tokens.Delete(ctx, service.ID, sess.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Token deleted"})
}
