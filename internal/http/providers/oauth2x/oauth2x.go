// Package oauth2x es el adapter genérico authorization-code sobre golang.org/x/oauth2.
// Los proveedores concretos (google, github, facebook, microsoft) lo parametrizan.
package oauth2x

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/federation/internal/domain/types"
	"github.com/dropDatabas3/federation/internal/http/providers"
)

// Options parametrizan el adapter por proveedor.
type Options struct {
	Provider      string
	Endpoint      oauth2.Endpoint
	DefaultScopes []string
	UserInfoURL   string
	AuthParams    map[string]string

	// Map traduce la respuesta cruda de user-info a identidad.
	Map func(raw map[string]any) *providers.RemoteIdentity

	// Enrich completa la identidad con llamadas extra (emails, grupos). Opcional.
	Enrich func(ctx context.Context, c *http.Client, tok *providers.TokenArtifact, id *providers.RemoteIdentity) error
}

// Adapter implementa providers.OAuth2.
type Adapter struct {
	cfg  providers.Config
	opts Options
	oc   *oauth2.Config
}

var _ providers.OAuth2 = (*Adapter)(nil)

// New valida la configuración y arma el oauth2.Config.
func New(cfg providers.Config, opts Options) (*Adapter, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%s: %w: client_id required", opts.Provider, providers.ErrMisconfigured)
	}
	if opts.Endpoint.TokenURL == "" || opts.UserInfoURL == "" || opts.Map == nil {
		return nil, fmt.Errorf("%s: %w: endpoints", opts.Provider, providers.ErrMisconfigured)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = opts.DefaultScopes
	}
	return &Adapter{
		cfg:  cfg,
		opts: opts,
		oc: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     opts.Endpoint,
		},
	}, nil
}

func (a *Adapter) Name() string { return a.opts.Provider }

// Kind respeta el modo del servicio (stateful por defecto).
func (a *Adapter) Kind() types.FlowKind {
	if a.cfg.Kind == types.KindOAuth2Stateless {
		return types.KindOAuth2Stateless
	}
	return types.KindOAuth2Stateful
}

// OAuth2Config expone la configuración (tests / diagnóstico).
func (a *Adapter) OAuth2Config() *oauth2.Config { return a.oc }

func (a *Adapter) AuthorizeURL(state string) string {
	opts := make([]oauth2.AuthCodeOption, 0, len(a.opts.AuthParams))
	for k, v := range a.opts.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return a.oc.AuthCodeURL(state, opts...)
}

func (a *Adapter) Exchange(ctx context.Context, code string) (*providers.TokenArtifact, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.cfg.Client())
	tok, err := a.oc.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: exchange: %w", a.opts.Provider, err)
	}
	return ArtifactFromToken(tok), nil
}

func (a *Adapter) FetchIdentity(ctx context.Context, tok *providers.TokenArtifact) (*providers.RemoteIdentity, error) {
	c := a.cfg.Client()
	var raw map[string]any
	if err := providers.GetJSON(ctx, c, a.opts.UserInfoURL, tok.AccessToken, &raw); err != nil {
		return nil, fmt.Errorf("%s: user info: %w", a.opts.Provider, err)
	}
	id := a.opts.Map(raw)
	if id == nil || id.ProviderUserID == "" {
		return nil, fmt.Errorf("%s: user info without id", a.opts.Provider)
	}
	id.RawClaims = raw
	if a.opts.Enrich != nil {
		if err := a.opts.Enrich(ctx, c, tok, id); err != nil {
			return nil, fmt.Errorf("%s: enrich: %w", a.opts.Provider, err)
		}
	}
	return id, nil
}

// ArtifactFromToken normaliza un oauth2.Token.
func ArtifactFromToken(tok *oauth2.Token) *providers.TokenArtifact {
	out := &providers.TokenArtifact{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		ExpiresIn:    expiresIn(tok),
	}
	out.IDToken, _ = tok.Extra("id_token").(string)
	out.Scope, _ = tok.Extra("scope").(string)

	raw := map[string]any{
		"access_token": tok.AccessToken,
		"token_type":   out.TokenType,
	}
	if tok.RefreshToken != "" {
		raw["refresh_token"] = tok.RefreshToken
	}
	if out.ExpiresIn > 0 {
		raw["expires_in"] = out.ExpiresIn
	}
	if out.IDToken != "" {
		raw["id_token"] = out.IDToken
	}
	if out.Scope != "" {
		raw["scope"] = out.Scope
	}
	out.RawResponse = raw
	return out
}

func expiresIn(tok *oauth2.Token) int {
	if tok.ExpiresIn > 0 {
		return int(tok.ExpiresIn)
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if !tok.Expiry.IsZero() {
		if d := time.Until(tok.Expiry); d > 0 {
			return int(d.Round(time.Second).Seconds())
		}
	}
	return 0
}

// EndpointWith aplica los overrides "auth" y "token" de cfg sobre def.
func EndpointWith(cfg providers.Config, def oauth2.Endpoint) oauth2.Endpoint {
	def.AuthURL = cfg.Endpoint("auth", def.AuthURL)
	def.TokenURL = cfg.Endpoint("token", def.TokenURL)
	return def
}

// WithScope agrega scope a scopes si falta.
func WithScope(scopes []string, scope string) []string {
	for _, s := range scopes {
		if s == scope {
			return scopes
		}
	}
	return append(append([]string(nil), scopes...), scope)
}
