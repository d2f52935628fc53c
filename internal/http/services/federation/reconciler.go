package federation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/federation/internal/audit"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/http/providers"
	"github.com/dropDatabas3/federation/internal/metrics"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// Reconciler crea o actualiza el usuario sombra de una identidad remota.
type Reconciler struct {
	users repository.UserRepository
	roles *RolePolicy
	now   func() time.Time
}

func NewReconciler(users repository.UserRepository, roles *RolePolicy, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{users: users, roles: roles, now: now}
}

// DisambiguateEmail agrega +<servicio> a la parte local (split en el último @).
// Sin email usa <providerUserID>+<servicio>@<servicio>.com.
func DisambiguateEmail(email, serviceName, providerUserID string) string {
	email = strings.TrimSpace(email)
	if i := strings.LastIndex(email, "@"); i > 0 && i < len(email)-1 {
		return email[:i] + "+" + serviceName + email[i:]
	}
	return fmt.Sprintf("%s+%s@%s.com", providerUserID, serviceName, serviceName)
}

// SplitName separa nombre y apellido en el primer espacio.
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	first, last, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

// Reconcile devuelve el usuario local de la identidad, creándolo si el servicio lo permite.
// Actualiza el último login y aplica la política de roles.
func (r *Reconciler) Reconcile(ctx context.Context, svc *repository.Service, id *providers.RemoteIdentity) (*repository.User, bool, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("federation.reconciler"),
		logger.ServiceName(svc.Name),
	)

	email := DisambiguateEmail(id.Email, svc.Name, id.ProviderUserID)
	log = log.With(logger.MaskedEmail(email))

	created := false
	u, err := r.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case repository.IsNotFound(err):
		if !svc.AllowNewUsers {
			log.Info("new user rejected by service policy")
			return nil, false, ErrNewUsersNotAllowed
		}
		u, created, err = r.create(ctx, svc, id, email)
		if err != nil {
			return nil, false, err
		}
		if created {
			metrics.UsersCreated.WithLabelValues(svc.Name).Inc()
			log.Info("shadow user created", logger.UserID(u.ID))
		}
	default:
		return nil, false, fmt.Errorf("reconcile: %w", err)
	}

	now := r.now().UTC()
	if err := r.users.RecordLogin(ctx, u.ID, now); err != nil {
		return nil, false, fmt.Errorf("reconcile: record login: %w", err)
	}
	u.LastLoginDate = &now
	u.ConfirmCode = nil

	if err := r.roles.Apply(ctx, svc, u, id); err != nil {
		return nil, false, fmt.Errorf("reconcile: roles: %w", err)
	}
	return u, created, nil
}

func (r *Reconciler) create(ctx context.Context, svc *repository.Service, id *providers.RemoteIdentity, email string) (*repository.User, bool, error) {
	name := id.DisplayName
	if name == "" {
		name = id.Nickname
	}
	first, last := SplitName(name)
	u := &repository.User{
		Username:      email,
		Email:         email,
		Name:          name,
		FirstName:     first,
		LastName:      last,
		IsActive:      true,
		OAuthProvider: svc.Provider,
	}
	err := r.users.Create(ctx, u)
	if err == nil {
		audit.Log(ctx, audit.EventUserCreated, logger.ServiceName(svc.Name), logger.UserID(u.ID), logger.MaskedEmail(email))
		return u, true, nil
	}
	if !repository.IsConflict(err) {
		return nil, false, fmt.Errorf("reconcile: create: %w", err)
	}
	// otro login concurrente lo creó
	u, err = r.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("reconcile: reread: %w", err)
	}
	return u, false, nil
}
