package federation

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	dto "github.com/dropDatabas3/federation/internal/http/dto/federation"
	httperrors "github.com/dropDatabas3/federation/internal/http/errors"
	"github.com/dropDatabas3/federation/internal/http/helpers"
	svc "github.com/dropDatabas3/federation/internal/http/services/federation"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// LoginController maneja inicio de login, callbacks y login con token.
type LoginController struct {
	services *svc.Services
	cfg      Config
}

// NewLoginController crea un nuevo LoginController.
func NewLoginController(s *svc.Services, cfg Config) *LoginController {
	return &LoginController{services: s, cfg: cfg}
}

// Login maneja GET /api/v2/{service}/login
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	service, err := c.services.ResolveService(ctx, chi.URLParam(r, "service"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	target, err := c.services.Orchestrator.StartLogin(ctx, service)
	if err != nil {
		log.Warn("start login failed", logger.ServiceName(service.Name), logger.Err(err))
		writeError(w, r, err)
		return
	}

	if helpers.WantsJSON(r) {
		helpers.WriteJSON(w, http.StatusOK, dto.NewRedirectResponse(target))
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback maneja GET|POST /api/v2/{service}/callback
func (c *LoginController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	service, err := c.services.ResolveService(ctx, chi.URLParam(r, "service"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.complete(w, r, service)
}

// GenericCallback maneja GET /api/v2/oauth/callback. El servicio sale del state guardado
// (o del oauth_token en OAuth 1.0a).
func (c *LoginController) GenericCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := helpers.FormValue(r, "state", "oauth_token")
	service, err := c.services.ResolveCallbackService(ctx, state)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.complete(w, r, service)
}

func (c *LoginController) complete(w http.ResponseWriter, r *http.Request, service *repository.Service) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Callback"),
		logger.ServiceName(service.Name))

	params := svc.CallbackParams{
		State:            helpers.FormValue(r, "state"),
		Code:             helpers.FormValue(r, "code"),
		OAuthToken:       helpers.FormValue(r, "oauth_token"),
		OAuthVerifier:    helpers.FormValue(r, "oauth_verifier"),
		Error:            helpers.FormValue(r, "error"),
		ErrorDescription: helpers.FormValue(r, "error_description"),
	}

	res, err := c.services.Orchestrator.CompleteLogin(ctx, service, params)
	if err != nil {
		log.Warn("callback failed", logger.Err(err))
		c.fail(w, r, err)
		return
	}

	payload := sessionPayload(res)
	if helpers.WantsJSON(r) {
		helpers.WriteJSON(w, http.StatusOK, payload)
		return
	}
	target := helpers.AppendQuery(c.cfg.SuccessRedirect, url.Values{"session_token": {payload.SessionToken}})
	http.Redirect(w, r, target, http.StatusFound)
}

// SSO maneja POST /api/v2/{service}/sso: el cliente ya tiene la respuesta del token endpoint.
func (c *LoginController) SSO(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.SSO"))

	service, err := c.services.ResolveService(ctx, chi.URLParam(r, "service"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body map[string]any
	if !helpers.ReadJSON(w, r, &body) {
		return
	}

	res, err := c.services.Orchestrator.LoginWithToken(ctx, service, body)
	if err != nil {
		log.Warn("token login failed", logger.ServiceName(service.Name), logger.Err(err))
		writeError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, sessionPayload(res))
}

// fail responde JSON a clientes XHR y redirige al front en el resto.
func (c *LoginController) fail(w http.ResponseWriter, r *http.Request, err error) {
	if helpers.WantsJSON(r) {
		writeError(w, r, err)
		return
	}
	appErr := mapError(err)
	if is5xx(appErr) {
		logger.From(r.Context()).Error("login error", logger.Err(err))
	}
	msg := appErr.Message
	if appErr.Detail != "" {
		msg = appErr.Detail
	}
	target := helpers.AppendQuery(c.cfg.ErrorRedirect, url.Values{"error": {msg}})
	http.Redirect(w, r, target, http.StatusFound)
}

func sessionPayload(res *svc.LoginResult) dto.SessionPayload {
	var oauthToken, idToken string
	if res.Token != nil {
		oauthToken = res.Token.AccessToken
		idToken = res.Token.IDToken
	}
	return dto.NewSessionPayload(res.User, res.Session, oauthToken, idToken)
}

// writeError mapea y escribe el error; los 5xx se loguean con la causa.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := mapError(err)
	if is5xx(appErr) {
		logger.From(r.Context()).Error("request failed", logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}
