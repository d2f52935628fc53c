package pg

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/federation/internal/domain/repository"
)

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, username, email, name, first_name, last_name, is_active, is_sys_admin,
	oauth_provider, confirm_code, last_login_date, created_at`

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	var first, last, provider *string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &first, &last, &u.IsActive, &u.IsSysAdmin,
		&provider, &u.ConfirmCode, &u.LastLoginDate, &u.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	u.FirstName = derefStr(first)
	u.LastName = derefStr(last)
	u.OAuthProvider = derefStr(provider)
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user WHERE id = $1`, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user WHERE email = $1`, strings.TrimSpace(email)))
}

func (r *userRepo) Create(ctx context.Context, u *repository.User) error {
	return insertUser(ctx, r.pool, u)
}

// querier es el subconjunto común de pool y tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertUser(ctx context.Context, q querier, u *repository.User) error {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return repository.ErrInvalidInput
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Username == "" {
		u.Username = u.Email
	}
	const sql = `
		INSERT INTO app_user (id, username, email, name, first_name, last_name, is_active, is_sys_admin,
			oauth_provider, confirm_code, last_login_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at`
	err := q.QueryRow(ctx, sql, u.ID, u.Username, u.Email, u.Name, nullIfEmpty(u.FirstName), nullIfEmpty(u.LastName),
		u.IsActive, u.IsSysAdmin, nullIfEmpty(u.OAuthProvider), u.ConfirmCode, u.LastLoginDate).Scan(&u.CreatedAt)
	return mapErr(err)
}

func (r *userRepo) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE app_user SET last_login_date = $2, confirm_code = NULL WHERE id = $1`, userID, at.UTC())
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM app_user WHERE id = $1`, id)
	return mapErr(err)
}
