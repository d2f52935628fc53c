package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
	"github.com/dropDatabas3/federation/internal/security/secretbox"
)

type serviceRepo struct {
	pool *pgxpool.Pool
	box  *secretbox.Box
}

const serviceColumns = `id, name, label, provider, kind, is_active, client_id, client_secret_enc,
	redirect_url, default_role, allow_new_users, map_group_to_role, tenant_id, authority_url,
	scopes, grant_type, is_client_credentials, sso_secret, sso_secret_type, created_at, updated_at`

func (r *serviceRepo) scan(row pgx.Row) (*repository.Service, error) {
	var s repository.Service
	var kind, secretEnc, ssoType string
	var redirect, defRole, tenant, authority, scopes, ssoSecret *string
	err := row.Scan(&s.ID, &s.Name, &s.Label, &s.Provider, &kind, &s.IsActive, &s.ClientID, &secretEnc,
		&redirect, &defRole, &s.AllowNewUsers, &s.MapGroupToRole, &tenant, &authority,
		&scopes, &s.GrantType, &s.IsClientCredentials, &ssoSecret, &ssoType, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	secret, err := r.box.Decrypt(secretEnc)
	if err != nil {
		return nil, fmt.Errorf("pg: decrypt client_secret for %q: %w", s.Name, err)
	}
	s.ClientSecret = secret
	s.Kind = types.FlowKind(kind)
	s.RedirectURL = derefStr(redirect)
	s.DefaultRoleID = derefStr(defRole)
	s.TenantID = derefStr(tenant)
	s.AuthorityURL = derefStr(authority)
	s.Scopes = derefStr(scopes)
	s.SSOSecret = derefStr(ssoSecret)
	s.SSOSecretType = types.SecretType(ssoType)
	return &s, nil
}

func (r *serviceRepo) GetByName(ctx context.Context, name string) (*repository.Service, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM service WHERE name = $1`, name))
}

func (r *serviceRepo) GetByID(ctx context.Context, id string) (*repository.Service, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM service WHERE id = $1`, id))
}

func (r *serviceRepo) List(ctx context.Context) ([]repository.Service, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+serviceColumns+` FROM service ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Service
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *serviceRepo) UpsertByName(ctx context.Context, s *repository.Service) (*repository.Service, error) {
	if s == nil || s.Name == "" || s.Provider == "" {
		return nil, repository.ErrInvalidInput
	}
	s.Normalize()
	if !s.Kind.IsValid() {
		return nil, fmt.Errorf("%w: kind %q", repository.ErrInvalidInput, s.Kind)
	}
	enc, err := r.box.Encrypt(s.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("pg: encrypt client_secret: %w", err)
	}
	ssoType := string(s.SSOSecretType)
	if ssoType == "" {
		ssoType = string(types.SecretString)
	}

	const q = `
		INSERT INTO service (id, name, label, provider, kind, is_active, client_id, client_secret_enc,
			redirect_url, default_role, allow_new_users, map_group_to_role, tenant_id, authority_url,
			scopes, grant_type, is_client_credentials, sso_secret, sso_secret_type, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$20)
		ON CONFLICT (name) DO UPDATE SET
			label = EXCLUDED.label,
			provider = EXCLUDED.provider,
			kind = EXCLUDED.kind,
			is_active = EXCLUDED.is_active,
			client_id = EXCLUDED.client_id,
			client_secret_enc = EXCLUDED.client_secret_enc,
			redirect_url = EXCLUDED.redirect_url,
			default_role = EXCLUDED.default_role,
			allow_new_users = EXCLUDED.allow_new_users,
			map_group_to_role = EXCLUDED.map_group_to_role,
			tenant_id = EXCLUDED.tenant_id,
			authority_url = EXCLUDED.authority_url,
			scopes = EXCLUDED.scopes,
			grant_type = EXCLUDED.grant_type,
			is_client_credentials = EXCLUDED.is_client_credentials,
			sso_secret = EXCLUDED.sso_secret,
			sso_secret_type = EXCLUDED.sso_secret_type,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + serviceColumns

	return r.scan(r.pool.QueryRow(ctx, q,
		uuid.NewString(), s.Name, s.Label, s.Provider, string(s.Kind), s.IsActive, s.ClientID, enc,
		nullIfEmpty(s.RedirectURL), nullIfEmpty(s.DefaultRoleID), s.AllowNewUsers, s.MapGroupToRole,
		nullIfEmpty(s.TenantID), nullIfEmpty(s.AuthorityURL), nullIfEmpty(s.Scopes), s.GrantType,
		s.IsClientCredentials, nullIfEmpty(s.SSOSecret), ssoType, time.Now().UTC(),
	))
}
