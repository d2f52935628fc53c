// Package microsoft implementa Azure AD: authorization code (Graph /me) y client credentials.
package microsoft

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/dropDatabas3/federation/internal/domain/types"
	"github.com/dropDatabas3/federation/internal/http/providers"
	"github.com/dropDatabas3/federation/internal/http/providers/oauth2x"
)

const (
	ProviderName = "microsoft"
	// ProviderAzureAD es el alias usado por servicios client-credentials.
	ProviderAzureAD = "azure_ad"

	DefaultAuthority = "https://login.microsoftonline.com/{tenant_id}"
	DefaultCCScope   = "https://graph.microsoft.com/.default"

	meURL = "https://graph.microsoft.com/v1.0/me"
)

var DefaultScopes = []string{"openid", "email", "profile", "User.Read"}

// Authority resuelve la authority con {tenant_id} sustituido. Sin tenant usa "common".
func Authority(authorityURL, tenantID string) string {
	a := strings.TrimSpace(authorityURL)
	if a == "" {
		a = DefaultAuthority
	}
	tenant := strings.TrimSpace(tenantID)
	if tenant == "" {
		tenant = "common"
	}
	a = strings.ReplaceAll(a, "{tenant_id}", tenant)
	return strings.TrimRight(a, "/")
}

// TokenURL = <authority>/oauth2/v2.0/token
func TokenURL(authorityURL, tenantID string) string {
	return Authority(authorityURL, tenantID) + "/oauth2/v2.0/token"
}

// Factory elige la variante según el kind del servicio.
func Factory(cfg providers.Config) (providers.Adapter, error) {
	if cfg.Kind == types.KindClientCredentials {
		return NewClientCredentials(cfg)
	}
	authority := Authority(cfg.AuthorityURL, cfg.TenantID)
	return oauth2x.New(cfg, oauth2x.Options{
		Provider: ProviderName,
		Endpoint: oauth2x.EndpointWith(cfg, oauth2.Endpoint{
			AuthURL:  authority + "/oauth2/v2.0/authorize",
			TokenURL: authority + "/oauth2/v2.0/token",
		}),
		DefaultScopes: DefaultScopes,
		UserInfoURL:   cfg.Endpoint("userinfo", meURL),
		Map:           mapProfile,
	})
}

func mapProfile(raw map[string]any) *providers.RemoteIdentity {
	email := providers.Str(raw, "mail")
	if email == "" {
		email = providers.Str(raw, "userPrincipalName")
	}
	return &providers.RemoteIdentity{
		ProviderUserID: providers.Str(raw, "id"),
		DisplayName:    providers.Str(raw, "displayName"),
		Email:          email,
	}
}

// ─── Client credentials ───

// ClientCredentials implementa providers.ClientCredentials con x/oauth2/clientcredentials.
type ClientCredentials struct {
	name string
	cc   *clientcredentials.Config
	http *http.Client
}

var _ providers.ClientCredentials = (*ClientCredentials)(nil)

// NewClientCredentials valida la configuración. Las credenciales viajan en el form.
func NewClientCredentials(cfg providers.Config) (*ClientCredentials, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%s: %w: client_id/client_secret required", cfg.Name, providers.ErrMisconfigured)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultCCScope}
	}
	c := cfg.Client()
	return &ClientCredentials{
		name: cfg.Name,
		cc: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.Endpoint("token", TokenURL(cfg.AuthorityURL, cfg.TenantID)),
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		http: c,
	}, nil
}

func (c *ClientCredentials) Name() string         { return ProviderAzureAD }
func (c *ClientCredentials) Kind() types.FlowKind { return types.KindClientCredentials }

// Scopes devuelve los scopes pedidos (separados por espacio).
func (c *ClientCredentials) Scopes() string { return strings.Join(c.cc.Scopes, " ") }

// FetchToken pide un token nuevo. No cachea: el cache vive en el manager.
func (c *ClientCredentials) FetchToken(ctx context.Context) (*providers.TokenArtifact, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.cc.Token(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "missing access_token") {
			return nil, fmt.Errorf("%s: %w", c.name, providers.ErrMissingAccessToken)
		}
		return nil, fmt.Errorf("%s: token: %w", c.name, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", c.name, providers.ErrMissingAccessToken)
	}
	art := oauth2x.ArtifactFromToken(tok)
	if art.Scope == "" {
		art.Scope = c.Scopes()
	}
	return art, nil
}
