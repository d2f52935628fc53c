// Package facebook implementa el adapter OAuth2 de Facebook (Graph API).
package facebook

import (
	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/federation/internal/http/providers"
	"github.com/dropDatabas3/federation/internal/http/providers/oauth2x"
)

const (
	ProviderName = "facebook"

	meURL = "https://graph.facebook.com/me?fields=id,name,email,picture"
)

var DefaultScopes = []string{"email", "public_profile"}

// Factory crea el adapter de Facebook.
func Factory(cfg providers.Config) (providers.Adapter, error) {
	return oauth2x.New(cfg, oauth2x.Options{
		Provider:      ProviderName,
		Endpoint:      oauth2x.EndpointWith(cfg, endpoints.Facebook),
		DefaultScopes: DefaultScopes,
		UserInfoURL:   cfg.Endpoint("userinfo", meURL),
		Map:           mapProfile,
	})
}

func mapProfile(raw map[string]any) *providers.RemoteIdentity {
	id := &providers.RemoteIdentity{
		ProviderUserID: providers.Str(raw, "id"),
		DisplayName:    providers.Str(raw, "name"),
		Email:          providers.Str(raw, "email"),
	}
	// picture.data.url
	if pic, ok := raw["picture"].(map[string]any); ok {
		if data, ok := pic["data"].(map[string]any); ok {
			id.AvatarURL = providers.Str(data, "url")
		}
	}
	return id
}
