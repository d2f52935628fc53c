package repository

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/federation/internal/domain/types"
)

// Proveedores con variante implícita.
const (
	ProviderHerokuAddonSSO = "heroku_addon_sso"
	ProviderTwitter        = "twitter"
	ProviderBitbucket      = "bitbucket"
)

// Service es la configuración de un servicio federado.
type Service struct {
	ID       string
	Name     string // usado en URLs y en el email desambiguado
	Label    string
	Provider string // google, github, facebook, microsoft, twitter, bitbucket, heroku_addon_sso
	Kind     types.FlowKind
	IsActive bool

	ClientID string
	// ClientSecret en claro en memoria; el store lo persiste cifrado con secretbox.
	ClientSecret string
	RedirectURL  string

	DefaultRoleID  string
	AllowNewUsers  bool
	MapGroupToRole bool

	// Client credentials (Azure AD)
	TenantID            string
	AuthorityURL        string
	Scopes              string
	GrantType           string
	IsClientCredentials bool

	// SSO por firma
	SSOSecret     string
	SSOSecretType types.SecretType

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Normalize completa Kind y GrantType cuando no vienen configurados.
func (s *Service) Normalize() {
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	if s.GrantType == "" {
		s.GrantType = "authorization_code"
	}
	if s.GrantType == "client_credentials" {
		s.IsClientCredentials = true
	}
	if s.Kind != "" {
		return
	}
	switch {
	case s.IsClientCredentials:
		s.Kind = types.KindClientCredentials
	case s.Provider == ProviderHerokuAddonSSO:
		s.Kind = types.KindSignatureSSO
	case s.Provider == ProviderTwitter || s.Provider == ProviderBitbucket:
		s.Kind = types.KindOAuth1a
	default:
		s.Kind = types.KindOAuth2Stateful
	}
}

// ServiceRepository gestiona la configuración de servicios federados.
type ServiceRepository interface {
	GetByName(ctx context.Context, name string) (*Service, error)
	GetByID(ctx context.Context, id string) (*Service, error)
	List(ctx context.Context) ([]Service, error)
	// UpsertByName crea o actualiza el servicio identificado por Name.
	UpsertByName(ctx context.Context, s *Service) (*Service, error)
}
