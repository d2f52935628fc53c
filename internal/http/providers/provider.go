// Package providers define los adapters de proveedores de identidad externos.
//
// Cada adapter lleva un tag de variante (types.FlowKind). El orquestador decide el flujo
// por el tag del servicio y luego pide al adapter la capacidad que ese flujo necesita:
//   - OAuth2: AuthorizeURL(state) + Exchange(code)
//   - OAuth1: TemporaryCredentials + AuthorizeURL(temp) + Exchange(temp, verifier)
//   - ClientCredentials: FetchToken
//
// Todas las variantes con usuario final implementan FetchIdentity.
package providers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
)

var (
	// ErrMisconfigured: faltan client_id/secret/endpoints.
	ErrMisconfigured = errors.New("provider misconfigured")
	// ErrCapability: el adapter no soporta la operación pedida por el flujo.
	ErrCapability = errors.New("provider does not support this flow")
	// ErrMissingAccessToken: respuesta 2xx del token endpoint sin access_token.
	ErrMissingAccessToken = errors.New("token response missing access_token")
)

// RemoteIdentity es la identidad normalizada que devuelve un proveedor. Inmutable.
type RemoteIdentity struct {
	ProviderUserID string
	DisplayName    string
	Email          string
	Nickname       string
	AvatarURL      string

	// RawClaims conserva la respuesta cruda. Los grupos van en RawClaims["groups"]
	// como lista de {email} o de strings.
	RawClaims map[string]any
}

// TokenArtifact es el resultado de un intercambio de token.
type TokenArtifact struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int // segundos, 0 si el proveedor no lo informa
	IDToken      string
	Scope        string
	TokenSecret  string // solo OAuth 1.0a
	RawResponse  map[string]any
}

// TempCredentials son las credenciales temporales de OAuth 1.0a.
type TempCredentials struct {
	Token  string `json:"token"`
	Secret string `json:"secret"`
}

// Adapter es la parte común a todas las variantes.
type Adapter interface {
	Name() string
	Kind() types.FlowKind
}

// IdentityFetcher resuelve la identidad remota desde un token.
type IdentityFetcher interface {
	FetchIdentity(ctx context.Context, tok *TokenArtifact) (*RemoteIdentity, error)
}

// OAuth2 es la capacidad authorization-code.
type OAuth2 interface {
	Adapter
	IdentityFetcher
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (*TokenArtifact, error)
}

// OAuth1 es la capacidad three-legged de OAuth 1.0a.
type OAuth1 interface {
	Adapter
	IdentityFetcher
	TemporaryCredentials(ctx context.Context) (*TempCredentials, error)
	AuthorizeURL(temp *TempCredentials) string
	Exchange(ctx context.Context, temp *TempCredentials, verifier string) (*TokenArtifact, error)
}

// ClientCredentials es la capacidad machine-to-machine.
type ClientCredentials interface {
	Adapter
	FetchToken(ctx context.Context) (*TokenArtifact, error)
}

// Config es la configuración de una instancia de adapter.
type Config struct {
	Name         string // nombre del servicio
	Provider     string
	Kind         types.FlowKind
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	TenantID     string
	AuthorityURL string
	GroupMapping bool

	// Overrides de endpoints (tests / proveedores self-hosted).
	Endpoints map[string]string

	HTTPClient *http.Client
}

// Endpoint devuelve el override o def.
func (c Config) Endpoint(key, def string) string {
	if v := strings.TrimSpace(c.Endpoints[key]); v != "" {
		return v
	}
	return def
}

// Client devuelve el http.Client configurado o NewHTTPClient(30s).
func (c Config) Client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return NewHTTPClient(DefaultHTTPTimeout)
}

const (
	DefaultHTTPTimeout = 30 * time.Second
	ConnectTimeout     = 10 * time.Second
)

// NewHTTPClient: timeout total acotado y 10s para conexión y handshake TLS.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: ConnectTimeout}).DialContext,
			TLSHandshakeTimeout: ConnectTimeout,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// ConfigFromService traduce un servicio federado a Config.
func ConfigFromService(s *repository.Service) Config {
	var scopes []string
	for _, sc := range strings.FieldsFunc(s.Scopes, func(r rune) bool { return r == ' ' || r == ',' }) {
		if sc = strings.TrimSpace(sc); sc != "" {
			scopes = append(scopes, sc)
		}
	}
	return Config{
		Name:         s.Name,
		Provider:     s.Provider,
		Kind:         s.Kind,
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURL:  s.RedirectURL,
		Scopes:       scopes,
		TenantID:     s.TenantID,
		AuthorityURL: s.AuthorityURL,
		GroupMapping: s.MapGroupToRole,
	}
}
