package federation

import (
	"context"
	"strings"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/http/providers"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// RolePolicy: rol por grupo (primer match) > rol default > mapa app→rol del servicio.
type RolePolicy struct {
	roles repository.RoleRepository
}

func NewRolePolicy(roles repository.RoleRepository) *RolePolicy {
	return &RolePolicy{roles: roles}
}

// Apply corre en cada login federado.
func (p *RolePolicy) Apply(ctx context.Context, svc *repository.Service, u *repository.User, id *providers.RemoteIdentity) error {
	log := logger.From(ctx).With(logger.Component("federation.roles"), logger.UserID(u.ID))

	roleID := ""
	if svc.MapGroupToRole && id != nil {
		for _, g := range GroupsFrom(id.RawClaims) {
			r, err := p.roles.FindRoleByGroup(ctx, g)
			if err == nil {
				roleID = r
				break
			}
			if !repository.IsNotFound(err) {
				return err
			}
		}
	}
	if roleID == "" {
		roleID = svc.DefaultRoleID
	}

	if roleID != "" {
		log.Debug("replacing user roles", logger.RoleID(roleID))
		return p.roles.ReplaceUserRoles(ctx, u.ID, roleID)
	}
	return p.roles.ApplyServiceRoleMap(ctx, u.ID, svc.ID)
}

// ApplyServiceAccount suma el rol default en todas las apps y luego el mapa del servicio.
func (p *RolePolicy) ApplyServiceAccount(ctx context.Context, svc *repository.Service, u *repository.User) error {
	if svc.DefaultRoleID != "" {
		if err := p.roles.AssignRoleAllApps(ctx, u.ID, svc.DefaultRoleID); err != nil {
			return err
		}
	}
	return p.roles.ApplyServiceRoleMap(ctx, u.ID, svc.ID)
}

// GroupsFrom extrae los emails de grupo de RawClaims["groups"], en orden.
// Acepta lista de strings o de objetos {email}.
func GroupsFrom(raw map[string]any) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch gs := raw["groups"].(type) {
	case []string:
		for _, g := range gs {
			add(g)
		}
	case []map[string]any:
		for _, g := range gs {
			add(providers.Str(g, "email"))
		}
	case []any:
		for _, g := range gs {
			switch v := g.(type) {
			case string:
				add(v)
			case map[string]any:
				add(providers.Str(v, "email"))
			}
		}
	}
	return out
}
