package federation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/federation/internal/audit"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
	"github.com/dropDatabas3/federation/internal/http/providers"
	jwtx "github.com/dropDatabas3/federation/internal/jwt"
	"github.com/dropDatabas3/federation/internal/metrics"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// flowState son los estados del login federado.
type flowState string

const (
	stateInit             flowState = "INIT"
	stateRedirected       flowState = "REDIRECTED"
	stateCallbackReceived flowState = "CALLBACK_RECEIVED"
	stateTokenExchanged   flowState = "TOKEN_EXCHANGED"
	stateIdentityResolved flowState = "IDENTITY_RESOLVED"
	stateDone             flowState = "DONE"
	stateFailed           flowState = "FAILED"
)

func transition(log *zap.Logger, st flowState) {
	log.Debug("login flow transition", logger.Op(string(st)))
}

// CallbackParams son los parámetros recibidos en el callback del proveedor.
type CallbackParams struct {
	State            string
	Code             string
	OAuthToken       string // OAuth 1.0a
	OAuthVerifier    string // OAuth 1.0a
	Error            string
	ErrorDescription string
}

// LoginResult es el resultado de un login federado completo.
type LoginResult struct {
	User    *repository.User
	Session *jwtx.Session
	Token   *providers.TokenArtifact
	Created bool
}

// Orchestrator conduce redirect → callback → exchange → identidad → sesión.
type Orchestrator struct {
	adapters   AdapterResolver
	states     *StateStore
	reconciler *Reconciler
	tokens     *TokenStore
	sessions   SessionIssuer
}

// StartLogin devuelve la URL de autorización del proveedor.
func (o *Orchestrator) StartLogin(ctx context.Context, svc *repository.Service) (string, error) {
	log := o.log(ctx, svc, "StartLogin")
	transition(log, stateInit)

	adapter, err := o.adapters.ForService(svc)
	if err != nil {
		return "", err
	}

	var url string
	switch svc.Kind {
	case types.KindOAuth2Stateful:
		a, ok := adapter.(providers.OAuth2)
		if !ok {
			return "", ErrUnsupportedFlow
		}
		state, err := o.states.Issue(ctx, svc.Name)
		if err != nil {
			return "", err
		}
		url = a.AuthorizeURL(state)

	case types.KindOAuth2Stateless:
		a, ok := adapter.(providers.OAuth2)
		if !ok {
			return "", ErrUnsupportedFlow
		}
		url = a.AuthorizeURL("")

	case types.KindOAuth1a:
		a, ok := adapter.(providers.OAuth1)
		if !ok {
			return "", ErrUnsupportedFlow
		}
		temp, err := a.TemporaryCredentials(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
		}
		if err := o.states.SaveTemp(ctx, temp); err != nil {
			return "", err
		}
		if err := o.states.Bind(ctx, temp.Token, svc.Name); err != nil {
			return "", err
		}
		url = a.AuthorizeURL(temp)

	default:
		return "", ErrUnsupportedFlow
	}

	transition(log, stateRedirected)
	return url, nil
}

// CompleteLogin procesa el callback del proveedor.
func (o *Orchestrator) CompleteLogin(ctx context.Context, svc *repository.Service, p CallbackParams) (res *LoginResult, err error) {
	log := o.log(ctx, svc, "CompleteLogin")
	transition(log, stateCallbackReceived)
	defer func() { o.observe(log, svc, err) }()

	adapter, err := o.adapters.ForService(svc)
	if err != nil {
		return nil, err
	}

	var art *providers.TokenArtifact
	switch svc.Kind {
	case types.KindOAuth2Stateful, types.KindOAuth2Stateless:
		a, ok := adapter.(providers.OAuth2)
		if !ok {
			return nil, ErrUnsupportedFlow
		}
		if svc.Kind == types.KindOAuth2Stateful {
			if err := o.states.Consume(ctx, p.State, svc.Name); err != nil {
				return nil, err
			}
		}
		if err := providerError(p); err != nil {
			return nil, err
		}
		if p.Code == "" {
			return nil, ErrMissingCode
		}
		art, err = a.Exchange(ctx, p.Code)

	case types.KindOAuth1a:
		a, ok := adapter.(providers.OAuth1)
		if !ok {
			return nil, ErrUnsupportedFlow
		}
		if err := o.states.Consume(ctx, p.OAuthToken, svc.Name); err != nil {
			return nil, err
		}
		temp, terr := o.states.PullTemp(ctx, p.OAuthToken)
		if terr != nil {
			return nil, terr
		}
		if err := providerError(p); err != nil {
			return nil, err
		}
		if p.OAuthVerifier == "" {
			return nil, ErrMissingCode
		}
		art, err = a.Exchange(ctx, temp, p.OAuthVerifier)

	default:
		return nil, ErrUnsupportedFlow
	}
	if err != nil {
		return nil, exchangeError(err)
	}
	transition(log, stateTokenExchanged)

	return o.finish(ctx, log, svc, adapter, art)
}

// LoginWithToken completa el login con una respuesta de token ya obtenida por el cliente.
// No hay validación de state.
func (o *Orchestrator) LoginWithToken(ctx context.Context, svc *repository.Service, tokenResponse map[string]any) (res *LoginResult, err error) {
	log := o.log(ctx, svc, "LoginWithToken")
	defer func() { o.observe(log, svc, err) }()

	art := ArtifactFromResponse(tokenResponse)
	if art.AccessToken == "" {
		return nil, fmt.Errorf("%w: access_token required", ErrBadSSORequest)
	}
	if !svc.Kind.Redirects() {
		return nil, ErrUnsupportedFlow
	}
	adapter, err := o.adapters.ForService(svc)
	if err != nil {
		return nil, err
	}
	transition(log, stateTokenExchanged)
	return o.finish(ctx, log, svc, adapter, art)
}

func (o *Orchestrator) finish(ctx context.Context, log *zap.Logger, svc *repository.Service, adapter providers.Adapter, art *providers.TokenArtifact) (*LoginResult, error) {
	fetcher, ok := adapter.(providers.IdentityFetcher)
	if !ok {
		return nil, ErrUnsupportedFlow
	}
	id, err := fetcher.FetchIdentity(ctx, art)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityFetchFailed, err)
	}
	transition(log, stateIdentityResolved)

	u, created, err := o.reconciler.Reconcile(ctx, svc, id)
	if err != nil {
		return nil, err
	}
	if err := o.tokens.Save(ctx, svc.ID, u.ID, art); err != nil {
		return nil, err
	}
	sess, err := o.sessions.IssueSession(u)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	transition(log, stateDone)
	audit.Log(ctx, audit.EventLogin, logger.ServiceName(svc.Name), logger.UserID(u.ID), logger.Bool("created", created))
	return &LoginResult{User: u, Session: sess, Token: art, Created: created}, nil
}

func (o *Orchestrator) log(ctx context.Context, svc *repository.Service, op string) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("federation.orchestrator"),
		logger.ServiceName(svc.Name),
		logger.Provider(svc.Provider),
		logger.Kind(string(svc.Kind)),
		zap.String("operation", op),
	)
}

func (o *Orchestrator) observe(log *zap.Logger, svc *repository.Service, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		transition(log.With(logger.Err(err)), stateFailed)
	}
	metrics.LoginsTotal.WithLabelValues(svc.Name, string(svc.Kind), result).Inc()
}

func providerError(p CallbackParams) error {
	if p.Error == "" {
		return nil
	}
	msg := p.Error
	if p.ErrorDescription != "" {
		msg += ": " + p.ErrorDescription
	}
	return fmt.Errorf("%w: %s", ErrProviderError, msg)
}

func exchangeError(err error) error {
	if errors.Is(err, providers.ErrMissingAccessToken) {
		return fmt.Errorf("%w: %v", ErrMissingAccessToken, err)
	}
	return fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
}

// ArtifactFromResponse arma un TokenArtifact desde un JSON de token endpoint.
func ArtifactFromResponse(m map[string]any) *providers.TokenArtifact {
	art := &providers.TokenArtifact{
		AccessToken:  strings.TrimSpace(providers.Str(m, "access_token")),
		RefreshToken: providers.Str(m, "refresh_token"),
		TokenType:    providers.Str(m, "token_type"),
		IDToken:      providers.Str(m, "id_token"),
		Scope:        providers.Str(m, "scope"),
		TokenSecret:  providers.Str(m, "oauth_token_secret"),
		RawResponse:  make(map[string]any, len(m)),
	}
	for k, v := range m {
		if k != "oauth_token_secret" {
			art.RawResponse[k] = v
		}
	}
	if art.AccessToken == "" {
		art.AccessToken = providers.Str(m, "oauth_token")
	}
	if art.TokenType == "" {
		art.TokenType = "Bearer"
	}
	if s := providers.Str(m, "expires_in"); s != "" {
		art.ExpiresIn, _ = strconv.Atoi(s)
	}
	return art
}
