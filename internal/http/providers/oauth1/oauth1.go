// Package oauth1 implementa OAuth 1.0a three-legged con firma HMAC-SHA1 (Twitter, Bitbucket).
package oauth1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dghubble/oauth1"

	"github.com/dropDatabas3/federation/internal/domain/types"
	"github.com/dropDatabas3/federation/internal/http/providers"
)

// Endpoints de un proveedor OAuth 1.0a.
type Endpoints struct {
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
	IdentityURL     string
	Map             func(raw map[string]any) *providers.RemoteIdentity
}

var Twitter = Endpoints{
	RequestTokenURL: "https://api.twitter.com/oauth/request_token",
	AuthorizeURL:    "https://api.twitter.com/oauth/authenticate",
	AccessTokenURL:  "https://api.twitter.com/oauth/access_token",
	IdentityURL:     "https://api.twitter.com/1.1/account/verify_credentials.json?include_email=true",
	Map: func(raw map[string]any) *providers.RemoteIdentity {
		return &providers.RemoteIdentity{
			ProviderUserID: providers.Str(raw, "id_str"),
			DisplayName:    providers.Str(raw, "name"),
			Nickname:       providers.Str(raw, "screen_name"),
			Email:          providers.Str(raw, "email"),
			AvatarURL:      providers.Str(raw, "profile_image_url_https"),
		}
	},
}

var Bitbucket = Endpoints{
	RequestTokenURL: "https://bitbucket.org/api/1.0/oauth/request_token",
	AuthorizeURL:    "https://bitbucket.org/api/1.0/oauth/authenticate",
	AccessTokenURL:  "https://bitbucket.org/api/1.0/oauth/access_token",
	IdentityURL:     "https://api.bitbucket.org/2.0/user",
	Map: func(raw map[string]any) *providers.RemoteIdentity {
		id := &providers.RemoteIdentity{
			ProviderUserID: providers.Str(raw, "account_id"),
			DisplayName:    providers.Str(raw, "display_name"),
			Nickname:       providers.Str(raw, "username"),
		}
		if id.ProviderUserID == "" {
			id.ProviderUserID = providers.Str(raw, "uuid")
		}
		if links, ok := raw["links"].(map[string]any); ok {
			if av, ok := links["avatar"].(map[string]any); ok {
				id.AvatarURL = providers.Str(av, "href")
			}
		}
		return id
	},
}

// Adapter implementa providers.OAuth1 sobre dghubble/oauth1.
type Adapter struct {
	provider string
	cfg      providers.Config
	ep       Endpoints
	oc       oauth1.Config
}

var _ providers.OAuth1 = (*Adapter)(nil)

// New aplica overrides ("request_token", "authorize", "access_token", "identity") de cfg.
func New(provider string, cfg providers.Config, ep Endpoints) (*Adapter, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%s: %w: consumer key/secret required", provider, providers.ErrMisconfigured)
	}
	ep.RequestTokenURL = cfg.Endpoint("request_token", ep.RequestTokenURL)
	ep.AuthorizeURL = cfg.Endpoint("authorize", ep.AuthorizeURL)
	ep.AccessTokenURL = cfg.Endpoint("access_token", ep.AccessTokenURL)
	ep.IdentityURL = cfg.Endpoint("identity", ep.IdentityURL)
	return &Adapter{
		provider: provider,
		cfg:      cfg,
		ep:       ep,
		oc: oauth1.Config{
			ConsumerKey:    cfg.ClientID,
			ConsumerSecret: cfg.ClientSecret,
			CallbackURL:    cfg.RedirectURL,
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: ep.RequestTokenURL,
				AuthorizeURL:    ep.AuthorizeURL,
				AccessTokenURL:  ep.AccessTokenURL,
			},
		},
	}, nil
}

// TwitterFactory y BitbucketFactory se registran en el Registry.
func TwitterFactory(cfg providers.Config) (providers.Adapter, error) {
	return New("twitter", cfg, Twitter)
}

func BitbucketFactory(cfg providers.Config) (providers.Adapter, error) {
	return New("bitbucket", cfg, Bitbucket)
}

func (a *Adapter) Name() string         { return a.provider }
func (a *Adapter) Kind() types.FlowKind { return types.KindOAuth1a }

// TemporaryCredentials obtiene el request token (oauth_callback = redirect del servicio).
func (a *Adapter) TemporaryCredentials(ctx context.Context) (*providers.TempCredentials, error) {
	token, secret, err := a.config(ctx).RequestToken()
	if err != nil {
		return nil, fmt.Errorf("%s: request token: %w", a.provider, err)
	}
	return &providers.TempCredentials{Token: token, Secret: secret}, nil
}

func (a *Adapter) AuthorizeURL(temp *providers.TempCredentials) string {
	u, err := a.oc.AuthorizationURL(temp.Token)
	if err != nil {
		return a.ep.AuthorizeURL
	}
	return u.String()
}

func (a *Adapter) Exchange(ctx context.Context, temp *providers.TempCredentials, verifier string) (*providers.TokenArtifact, error) {
	token, secret, err := a.config(ctx).AccessToken(temp.Token, temp.Secret, verifier)
	if err != nil {
		return nil, fmt.Errorf("%s: access token: %w", a.provider, err)
	}
	return &providers.TokenArtifact{
		AccessToken: token,
		TokenSecret: secret,
		TokenType:   "OAuth",
		RawResponse: map[string]any{"oauth_token": token},
	}, nil
}

// FetchIdentity firma el GET de identidad con el token de acceso.
func (a *Adapter) FetchIdentity(ctx context.Context, tok *providers.TokenArtifact) (*providers.RemoteIdentity, error) {
	base := a.cfg.Client()
	client := a.oc.Client(context.WithValue(ctx, oauth1.HTTPClient, base), oauth1.NewToken(tok.AccessToken, tok.TokenSecret))
	client.Timeout = base.Timeout

	var raw map[string]any
	if err := providers.GetJSON(ctx, client, a.ep.IdentityURL, "", &raw); err != nil {
		return nil, fmt.Errorf("%s: identity: %w", a.provider, err)
	}
	id := a.ep.Map(raw)
	if id == nil || id.ProviderUserID == "" {
		return nil, fmt.Errorf("%s: identity without id", a.provider)
	}
	id.RawClaims = raw
	return id, nil
}

// config copia la configuración con un cliente atado a ctx: RequestToken y AccessToken no reciben contexto.
func (a *Adapter) config(ctx context.Context) *oauth1.Config {
	base := a.cfg.Client()
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c := a.oc
	c.HTTPClient = &http.Client{Timeout: base.Timeout, Transport: ctxTransport{ctx: ctx, base: rt}}
	return &c
}

// ctxTransport cancela el request cuando termina ctx, sin perder el deadline del cliente.
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := t.ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(r.Context())
	context.AfterFunc(t.ctx, cancel)
	return t.base.RoundTrip(r.WithContext(ctx))
}
