package federation

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/federation/internal/http/dto/federation"
	"github.com/dropDatabas3/federation/internal/http/helpers"
	svc "github.com/dropDatabas3/federation/internal/http/services/federation"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// SignatureSSOController maneja el SSO firmado de add-ons (Heroku).
type SignatureSSOController struct {
	services *svc.Services
}

func NewSignatureSSOController(s *svc.Services) *SignatureSSOController {
	return &SignatureSSOController{services: s}
}

// SSO maneja GET|POST /api/v2/{service}/heroku/sso.
// Responde 302 a /?jwt=<token> con el JSON {id,email,jwt} en el body.
func (c *SignatureSSOController) SSO(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SignatureSSOController.SSO"))

	service, err := c.services.ResolveService(ctx, chi.URLParam(r, "service"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	in := svc.SSORequest{
		ResourceToken: helpers.FormValue(r, "resource_token", "token"),
		ResourceID:    helpers.FormValue(r, "resource_id", "id"),
		Timestamp:     helpers.FormValue(r, "timestamp"),
		UserID:        helpers.FormValue(r, "user_id"),
		Email:         helpers.FormValue(r, "email"),
	}
	res, err := c.services.SignatureSSO.Handle(ctx, service, in)
	if err != nil {
		log.Warn("signature sso rejected", logger.ServiceName(service.Name), logger.Err(err))
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Location", "/?"+url.Values{"jwt": {res.Session.Token}}.Encode())
	w.WriteHeader(http.StatusFound)
	_ = json.NewEncoder(w).Encode(dto.SignatureSSOResponse{
		ID:    res.User.ID,
		Email: res.User.Email,
		JWT:   res.Session.Token,
	})
}
