package federation

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/federation/internal/http/dto/federation"
	"github.com/dropDatabas3/federation/internal/http/helpers"
	svc "github.com/dropDatabas3/federation/internal/http/services/federation"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// ClientCredentialsController expone el token de aplicación de un servicio client credentials.
type ClientCredentialsController struct {
	services *svc.Services
}

func NewClientCredentialsController(s *svc.Services) *ClientCredentialsController {
	return &ClientCredentialsController{services: s}
}

// Get maneja GET /api/v2/{service}/client_credentials (reusa el token cacheado).
func (c *ClientCredentialsController) Get(w http.ResponseWriter, r *http.Request) {
	c.issue(w, r, false)
}

// Refresh maneja POST /api/v2/{service}/client_credentials (fuerza un token nuevo).
func (c *ClientCredentialsController) Refresh(w http.ResponseWriter, r *http.Request) {
	c.issue(w, r, true)
}

func (c *ClientCredentialsController) issue(w http.ResponseWriter, r *http.Request, force bool) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ClientCredentialsController.Issue"))

	service, err := c.services.ResolveService(ctx, chi.URLParam(r, "service"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var res *svc.CCResult
	if force {
		res, err = c.services.ClientCredentials.RefreshToken(ctx, service)
	} else {
		res, err = c.services.ClientCredentials.GetToken(ctx, service)
	}
	if err != nil {
		log.Warn("client credentials failed", logger.ServiceName(service.Name), logger.Err(err))
		writeError(w, r, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.ClientCredentialsResponse{
		SessionPayload: dto.NewSessionPayload(res.User, res.Session, res.Token.AccessToken, ""),
		AccessToken:    res.Token.AccessToken,
		TokenType:      res.Token.TokenType,
		ExpiresIn:      res.Token.ExpiresIn,
		Scope:          res.Token.Scope,
		AcquiredAt:     res.Token.AcquiredAt.UTC().Format(time.RFC3339),
		Cached:         res.Cached,
	})
}

// Clear maneja DELETE /api/v2/{service}/client_credentials.
func (c *ClientCredentialsController) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	service, err := c.services.ResolveService(ctx, chi.URLParam(r, "service"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.services.ClientCredentials.ClearToken(ctx, service); err != nil {
		writeError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Token cache cleared"})
}

// Status maneja GET /api/v2/{service}/client_credentials/status.
func (c *ClientCredentialsController) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	service, err := c.services.ResolveService(ctx, chi.URLParam(r, "service"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := c.services.ClientCredentials.Status(ctx, service)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ClientCredentialsStatus{
		Valid:     st.Valid,
		Cached:    st.Cached,
		TokenType: st.TokenType,
		Scope:     st.Scope,
		Message:   st.Message,
	})
}
