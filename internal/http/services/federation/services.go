// Package federation contiene el núcleo de federación de identidad: máquina de estados
// del login, cache de state, token store, reconciliación de usuarios sombra, política
// de roles, client credentials y SSO por firma.
package federation

import (
	"context"
	"time"

	"github.com/dropDatabas3/federation/internal/cache"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/http/providers"
	jwtx "github.com/dropDatabas3/federation/internal/jwt"
)

// AdapterResolver resuelve el adapter de proveedor de un servicio (providers.Registry).
type AdapterResolver interface {
	ForService(s *repository.Service) (providers.Adapter, error)
}

// SessionIssuer emite el session token local (jwt.Issuer).
type SessionIssuer interface {
	IssueSession(u *repository.User) (*jwtx.Session, error)
}

// Deps contiene las dependencias para crear los services de federación.
type Deps struct {
	Services repository.ServiceRepository
	Users    repository.UserRepository
	Roles    repository.RoleRepository
	Tokens   repository.TokenMapRepository
	Heroku   repository.HerokuUserRepository

	Cache    cache.Client
	Adapters AdapterResolver
	Sessions SessionIssuer

	StateTTL time.Duration // default 180s
	TokenTTL time.Duration // cache de tokens por (service,user), default 5m
	Now      func() time.Time
}

// Services agrupa todos los services del dominio federación.
type Services struct {
	Orchestrator      *Orchestrator
	ClientCredentials *ClientCredentialsManager
	SignatureSSO      *SignatureSSO
	Tokens            *TokenStore
	Reconciler        *Reconciler
	Roles             *RolePolicy
	States            *StateStore

	catalog repository.ServiceRepository
}

// NewServices crea el agregador de services de federación.
func NewServices(d Deps) *Services {
	if d.StateTTL <= 0 {
		d.StateTTL = DefaultStateTTL
	}
	if d.TokenTTL <= 0 {
		d.TokenTTL = DefaultTokenTTL
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	states := NewStateStore(d.Cache, d.StateTTL)
	tokens := NewTokenStore(d.Tokens, d.Cache, d.TokenTTL)
	roles := NewRolePolicy(d.Roles)
	rec := NewReconciler(d.Users, roles, d.Now)

	return &Services{
		Orchestrator: &Orchestrator{
			adapters:   d.Adapters,
			states:     states,
			reconciler: rec,
			tokens:     tokens,
			sessions:   d.Sessions,
		},
		ClientCredentials: &ClientCredentialsManager{
			adapters: d.Adapters,
			cache:    d.Cache,
			users:    d.Users,
			roles:    roles,
			sessions: d.Sessions,
			now:      d.Now,
		},
		SignatureSSO: &SignatureSSO{
			heroku:   d.Heroku,
			users:    d.Users,
			sessions: d.Sessions,
			now:      d.Now,
		},
		Tokens:     tokens,
		Reconciler: rec,
		Roles:      roles,
		States:     states,
		catalog:    d.Services,
	}
}

// ResolveService busca el servicio por nombre y exige que esté activo.
func (s *Services) ResolveService(ctx context.Context, name string) (*repository.Service, error) {
	if name == "" {
		return nil, ErrServiceNotFound
	}
	svc, err := s.catalog.GetByName(ctx, name)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	if !svc.IsActive {
		return nil, ErrServiceInactive
	}
	return svc, nil
}

// ResolveCallbackService resuelve el servicio de un callback genérico mirando (sin consumir)
// el state guardado.
func (s *Services) ResolveCallbackService(ctx context.Context, state string) (*repository.Service, error) {
	name, err := s.States.Peek(ctx, state)
	if err != nil {
		return nil, err
	}
	return s.ResolveService(ctx, name)
}
