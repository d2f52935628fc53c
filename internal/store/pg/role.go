package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/federation/internal/domain/repository"
)

type roleRepo struct{ pool *pgxpool.Pool }

func (r *roleRepo) FindRoleByGroup(ctx context.Context, groupEmail string) (string, error) {
	var roleID string
	err := r.pool.QueryRow(ctx,
		`SELECT role_id FROM role_google WHERE lower(group_email) = lower($1) ORDER BY role_id LIMIT 1`,
		strings.TrimSpace(groupEmail)).Scan(&roleID)
	if err != nil {
		return "", mapErr(err)
	}
	return roleID, nil
}

func (r *roleRepo) UpsertGroupMapping(ctx context.Context, m repository.RoleGroupMapping) error {
	if m.RoleID == "" || strings.TrimSpace(m.GroupEmail) == "" {
		return repository.ErrInvalidInput
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_google (role_id, group_email) VALUES ($1, $2)
		ON CONFLICT (role_id) DO UPDATE SET group_email = EXCLUDED.group_email`,
		m.RoleID, strings.TrimSpace(m.GroupEmail))
	return mapErr(err)
}

func (r *roleRepo) ReplaceUserRoles(ctx context.Context, userID, roleID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM user_app_role WHERE user_id = $1`, userID); err != nil {
		return mapErr(err)
	}
	if err := assignAllApps(ctx, tx, userID, roleID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *roleRepo) AssignRoleAllApps(ctx context.Context, userID, roleID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := assignAllApps(ctx, tx, userID, roleID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// assignAllApps asigna roleID al usuario en cada app (una asignación por app).
func assignAllApps(ctx context.Context, tx pgx.Tx, userID, roleID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_app_role (user_id, app_id, role_id)
		SELECT $1, a.id, $2 FROM app a
		ON CONFLICT (user_id, app_id) DO UPDATE SET role_id = EXCLUDED.role_id`,
		userID, roleID)
	if err != nil {
		return fmt.Errorf("pg: assign role %s: %w", roleID, mapErr(err))
	}
	return nil
}

func (r *roleRepo) ApplyServiceRoleMap(ctx context.Context, userID, serviceID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM service_app_role_map WHERE service_id = $1`, serviceID).Scan(&n); err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, `DELETE FROM user_app_role WHERE user_id = $1`, userID); err != nil {
		return mapErr(err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_app_role (user_id, app_id, role_id)
		SELECT $1, m.app_id, m.role_id FROM service_app_role_map m WHERE m.service_id = $2`,
		userID, serviceID); err != nil {
		return mapErr(err)
	}
	return tx.Commit(ctx)
}

func (r *roleRepo) ListUserRoles(ctx context.Context, userID string) ([]repository.AppRole, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, app_id, role_id FROM user_app_role WHERE user_id = $1 ORDER BY app_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.AppRole
	for rows.Next() {
		var ar repository.AppRole
		if err := rows.Scan(&ar.UserID, &ar.AppID, &ar.RoleID); err != nil {
			return nil, err
		}
		out = append(out, ar)
	}
	return out, rows.Err()
}

func (r *roleRepo) EnsureRole(ctx context.Context, id, name string) error {
	if name == "" {
		name = id
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, id, name)
	return mapErr(err)
}

func (r *roleRepo) EnsureApp(ctx context.Context, id, name string) error {
	if name == "" {
		name = id
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO app (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, id, name)
	return mapErr(err)
}

func (r *roleRepo) SetServiceRoleMap(ctx context.Context, serviceID string, appToRole map[string]string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM service_app_role_map WHERE service_id = $1`, serviceID); err != nil {
		return mapErr(err)
	}
	for appID, roleID := range appToRole {
		if _, err := tx.Exec(ctx,
			`INSERT INTO service_app_role_map (service_id, app_id, role_id) VALUES ($1, $2, $3)`,
			serviceID, appID, roleID); err != nil {
			return mapErr(err)
		}
	}
	return tx.Commit(ctx)
}
