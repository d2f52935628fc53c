// Package github implementa el adapter OAuth2 de GitHub.
// GitHub no emite ID tokens; el email puede venir vacío y se resuelve vía /user/emails.
package github

import (
	"context"
	"net/http"

	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/federation/internal/http/providers"
	"github.com/dropDatabas3/federation/internal/http/providers/oauth2x"
)

const (
	ProviderName = "github"

	userURL   = "https://api.github.com/user"
	emailsURL = "https://api.github.com/user/emails"
)

var DefaultScopes = []string{"read:user", "user:email"}

// Factory crea el adapter de GitHub.
func Factory(cfg providers.Config) (providers.Adapter, error) {
	return oauth2x.New(cfg, oauth2x.Options{
		Provider:      ProviderName,
		Endpoint:      oauth2x.EndpointWith(cfg, endpoints.GitHub),
		DefaultScopes: DefaultScopes,
		UserInfoURL:   cfg.Endpoint("userinfo", userURL),
		AuthParams:    map[string]string{"allow_signup": "true"},
		Map:           mapProfile,
		Enrich:        emailEnricher(cfg.Endpoint("emails", emailsURL)),
	})
}

func mapProfile(raw map[string]any) *providers.RemoteIdentity {
	return &providers.RemoteIdentity{
		ProviderUserID: providers.Str(raw, "id"),
		DisplayName:    providers.Str(raw, "name"),
		Nickname:       providers.Str(raw, "login"),
		Email:          providers.Str(raw, "email"),
		AvatarURL:      providers.Str(raw, "avatar_url"),
	}
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// emailEnricher busca el email primario verificado cuando /user no lo expone.
// Si /user/emails falla se conserva la identidad sin email.
func emailEnricher(url string) func(context.Context, *http.Client, *providers.TokenArtifact, *providers.RemoteIdentity) error {
	return func(ctx context.Context, c *http.Client, tok *providers.TokenArtifact, id *providers.RemoteIdentity) error {
		if id.Email != "" {
			return nil
		}
		var emails []emailInfo
		if err := providers.GetJSON(ctx, c, url, tok.AccessToken, &emails); err != nil {
			return nil
		}
		id.Email = pickEmail(emails)
		return nil
	}
}

func pickEmail(emails []emailInfo) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}
