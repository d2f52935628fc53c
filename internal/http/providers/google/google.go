// Package google implementa el adapter OAuth2/OIDC de Google, con grupos opcionales
// vía Admin Directory API cuando el servicio mapea grupos a roles.
package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/federation/internal/http/providers"
	"github.com/dropDatabas3/federation/internal/http/providers/oauth2x"
)

const (
	ProviderName = "google"

	userInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	groupsURL   = "https://admin.googleapis.com/admin/directory/v1/groups"
	groupsScope = "https://www.googleapis.com/auth/admin.directory.group.readonly"

	maxGroupPages = 10
)

var DefaultScopes = []string{"openid", "email", "profile"}

// Factory crea el adapter de Google.
func Factory(cfg providers.Config) (providers.Adapter, error) {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	opts := oauth2x.Options{
		Provider:    ProviderName,
		Endpoint:    oauth2x.EndpointWith(cfg, endpoints.Google),
		UserInfoURL: cfg.Endpoint("userinfo", userInfoURL),
		AuthParams:  map[string]string{"access_type": "offline"},
		Map:         mapProfile,
	}
	if cfg.GroupMapping {
		cfg.Scopes = oauth2x.WithScope(cfg.Scopes, groupsScope)
		opts.Enrich = groupsEnricher(cfg.Endpoint("groups", groupsURL))
	}
	return oauth2x.New(cfg, opts)
}

func mapProfile(raw map[string]any) *providers.RemoteIdentity {
	return &providers.RemoteIdentity{
		ProviderUserID: providers.Str(raw, "sub"),
		DisplayName:    providers.Str(raw, "name"),
		Email:          providers.Str(raw, "email"),
		AvatarURL:      providers.Str(raw, "picture"),
	}
}

type groupsPage struct {
	Groups []struct {
		Email string `json:"email"`
	} `json:"groups"`
	NextPageToken string `json:"nextPageToken"`
}

// groupsEnricher agrega RawClaims["groups"] = [{email}, ...] en el orden del proveedor.
func groupsEnricher(base string) func(context.Context, *http.Client, *providers.TokenArtifact, *providers.RemoteIdentity) error {
	return func(ctx context.Context, c *http.Client, tok *providers.TokenArtifact, id *providers.RemoteIdentity) error {
		if id.Email == "" {
			return nil
		}
		var groups []any
		pageToken := ""
		for i := 0; i < maxGroupPages; i++ {
			q := url.Values{"userKey": {id.Email}}
			if pageToken != "" {
				q.Set("pageToken", pageToken)
			}
			var page groupsPage
			if err := providers.GetJSON(ctx, c, base+"?"+q.Encode(), tok.AccessToken, &page); err != nil {
				return fmt.Errorf("groups: %w", err)
			}
			for _, g := range page.Groups {
				groups = append(groups, map[string]any{"email": g.Email})
			}
			if page.NextPageToken == "" {
				break
			}
			pageToken = page.NextPageToken
		}
		id.RawClaims["groups"] = groups
		return nil
	}
}
