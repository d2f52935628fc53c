package repository

import "context"

// RoleGroupMapping asocia un rol a un grupo externo (ej: email de Google Group).
// RoleID es la clave: un rol mapea a exactamente un grupo.
type RoleGroupMapping struct {
	RoleID     string
	GroupEmail string
}

// AppRole es una asignación usuario→app→rol.
type AppRole struct {
	UserID string
	AppID  string
	RoleID string
}

// RoleRepository gestiona asignaciones de roles por app.
type RoleRepository interface {
	// FindRoleByGroup retorna el rol mapeado al grupo o ErrNotFound.
	FindRoleByGroup(ctx context.Context, groupEmail string) (string, error)

	// UpsertGroupMapping crea o reemplaza el grupo mapeado a roleID.
	UpsertGroupMapping(ctx context.Context, m RoleGroupMapping) error

	// ReplaceUserRoles borra todas las asignaciones del usuario y asigna roleID en todas las apps.
	ReplaceUserRoles(ctx context.Context, userID, roleID string) error

	// AssignRoleAllApps asigna roleID en todas las apps sin borrar las existentes.
	AssignRoleAllApps(ctx context.Context, userID, roleID string) error

	// ApplyServiceRoleMap reemplaza las asignaciones del usuario por el mapa app→rol del servicio.
	// Si el servicio no tiene mapa, no toca nada.
	ApplyServiceRoleMap(ctx context.Context, userID, serviceID string) error

	ListUserRoles(ctx context.Context, userID string) ([]AppRole, error)

	// Bootstrap (config/CLI): idempotentes.
	EnsureRole(ctx context.Context, id, name string) error
	EnsureApp(ctx context.Context, id, name string) error
	SetServiceRoleMap(ctx context.Context, serviceID string, appToRole map[string]string) error
}
