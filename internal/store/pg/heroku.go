package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/federation/internal/domain/repository"
)

type herokuRepo struct{ pool *pgxpool.Pool }

const herokuLookup = `
	SELECT u.id, u.username, u.email, u.name, u.first_name, u.last_name, u.is_active, u.is_sys_admin,
		u.oauth_provider, u.confirm_code, u.last_login_date, u.created_at
	FROM heroku_users_map h JOIN app_user u ON u.id = h.user_id
	WHERE h.heroku_user_id = $1`

func (r *herokuRepo) GetOrCreateUser(ctx context.Context, herokuUserID, email string) (*repository.User, bool, error) {
	if herokuUserID == "" || email == "" {
		return nil, false, repository.ErrInvalidInput
	}

	u, err := scanUser(r.pool.QueryRow(ctx, herokuLookup, herokuUserID))
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	created, err := r.create(ctx, herokuUserID, email)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return nil, false, err
	}
	// Otra request creó el mapeo en paralelo: releer.
	u, err = scanUser(r.pool.QueryRow(ctx, herokuLookup, herokuUserID))
	if err != nil {
		return nil, false, err
	}
	return u, false, nil
}

// create inserta usuario + mapeo en una transacción. ErrConflict si alguno ya existe.
func (r *herokuRepo) create(ctx context.Context, herokuUserID, email string) (*repository.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u := &repository.User{
		Email:      email,
		Username:   email,
		Name:       email,
		IsActive:   true,
		IsSysAdmin: true,
	}
	if err := insertUser(ctx, tx, u); err != nil {
		return nil, fmt.Errorf("pg: heroku user: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO heroku_users_map (heroku_user_id, user_id) VALUES ($1, $2)
		ON CONFLICT (heroku_user_id) DO NOTHING`, herokuUserID, u.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, repository.ErrConflict
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}
