// Package bootstrap aplica los seeds declarados en la configuración: apps, roles,
// mapeos rol→grupo y servicios federados. Todas las operaciones son idempotentes.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dropDatabas3/federation/internal/config"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// Repos son los repositorios que toca el bootstrap.
type Repos struct {
	Services repository.ServiceRepository
	Roles    repository.RoleRepository
}

// Result resume lo aplicado.
type Result struct {
	Apps     int
	Roles    int
	Groups   int
	Services []string
}

// Seed aplica fed.Bootstrap y luego hace upsert de fed.Services por nombre.
func Seed(ctx context.Context, r Repos, fed config.Federation) (*Result, error) {
	log := logger.From(ctx).With(logger.Layer("bootstrap"), logger.Op("Seed"))
	res := &Result{}

	for _, a := range fed.Bootstrap.Apps {
		if err := r.Roles.EnsureApp(ctx, a.ID, a.Name); err != nil {
			return nil, fmt.Errorf("app %s: %w", a.ID, err)
		}
		res.Apps++
	}
	for _, role := range fed.Bootstrap.Roles {
		if err := r.Roles.EnsureRole(ctx, role.ID, role.Name); err != nil {
			return nil, fmt.Errorf("role %s: %w", role.ID, err)
		}
		res.Roles++
	}
	for _, g := range fed.Bootstrap.RoleGroups {
		if err := r.Roles.UpsertGroupMapping(ctx, repository.RoleGroupMapping{RoleID: g.Role, GroupEmail: g.Group}); err != nil {
			return nil, fmt.Errorf("role group %s: %w", g.Role, err)
		}
		res.Groups++
	}

	for _, seed := range fed.Services {
		svc, err := r.Services.UpsertByName(ctx, seed.ToService())
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", seed.Name, err)
		}
		if len(seed.AppRoleMap) > 0 {
			if err := r.Roles.SetServiceRoleMap(ctx, svc.ID, seed.AppRoleMap); err != nil {
				return nil, fmt.Errorf("service %s role map: %w", seed.Name, err)
			}
		}
		res.Services = append(res.Services, svc.Name)
		log.Debug("service seeded", logger.ServiceName(svc.Name), logger.Kind(string(svc.Kind)))
	}

	log.Info("bootstrap applied",
		logger.Int("apps", res.Apps),
		logger.Int("roles", res.Roles),
		logger.Int("role_groups", res.Groups),
		logger.Int("services", len(res.Services)),
	)
	return res, nil
}

// Defaults del servicio de SSO por firma que crea heroku-setup.
const (
	HerokuServiceName   = "heroku-addon"
	HerokuDefaultSecret = "HEROKU_SSO_SECRET"
)

// HerokuSeed completa los defaults del servicio heroku-addon sobre override (puede ser vacío).
func HerokuSeed(override config.ServiceSeed) config.ServiceSeed {
	s := override
	if s.Name == "" {
		s.Name = HerokuServiceName
	}
	if s.Label == "" {
		s.Label = "Heroku Add-on SSO"
	}
	s.Provider = repository.ProviderHerokuAddonSSO
	s.Kind = string(types.KindSignatureSSO)
	if s.SSOSecret == "" {
		s.SSOSecret = HerokuDefaultSecret
		if s.SSOSecretType == "" {
			s.SSOSecretType = string(types.SecretEnvironment)
		}
	}
	if s.SSOSecretType == "" {
		s.SSOSecretType = string(types.SecretString)
	}
	return s
}

// EnsureHerokuService crea el servicio de SSO por firma si no existe. created=false si ya estaba.
func EnsureHerokuService(ctx context.Context, services repository.ServiceRepository, override config.ServiceSeed) (*repository.Service, bool, error) {
	seed := HerokuSeed(override)
	if err := seed.Validate(); err != nil {
		return nil, false, err
	}

	existing, err := services.GetByName(ctx, seed.Name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	svc, err := services.UpsertByName(ctx, seed.ToService())
	if err != nil {
		return nil, false, err
	}
	if svc.SSOSecretType == types.SecretEnvironment && os.Getenv(svc.SSOSecret) == "" {
		logger.From(ctx).Warn("sso secret env var is empty", logger.String("env", svc.SSOSecret))
	}
	return svc, true, nil
}
