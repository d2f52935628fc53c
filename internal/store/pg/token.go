package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/federation/internal/domain/repository"
)

type tokenRepo struct{ pool *pgxpool.Pool }

func (r *tokenRepo) Get(ctx context.Context, serviceID, userID string) (*repository.TokenMap, error) {
	var (
		t   repository.TokenMap
		raw []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, service_id, user_id, token, response, updated_at
		FROM oauth_token_map WHERE service_id = $1 AND user_id = $2`, serviceID, userID).
		Scan(&t.ID, &t.ServiceID, &t.UserID, &t.Token, &raw, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &t.Response); err != nil {
			return nil, fmt.Errorf("pg: decode token response: %w", err)
		}
	}
	return &t, nil
}

func (r *tokenRepo) Upsert(ctx context.Context, t *repository.TokenMap) error {
	if t == nil || t.ServiceID == "" || t.UserID == "" {
		return repository.ErrInvalidInput
	}
	var raw []byte
	if t.Response != nil {
		b, err := json.Marshal(t.Response)
		if err != nil {
			return fmt.Errorf("pg: encode token response: %w", err)
		}
		raw = b
	}
	// Upsert sobre UNIQUE(service_id, user_id): a lo sumo un registro por par.
	err := r.pool.QueryRow(ctx, `
		INSERT INTO oauth_token_map (id, service_id, user_id, token, response, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (service_id, user_id) DO UPDATE SET
			token = EXCLUDED.token,
			response = EXCLUDED.response,
			updated_at = NOW()
		RETURNING id, updated_at`,
		uuid.NewString(), t.ServiceID, t.UserID, t.Token, raw).Scan(&t.ID, &t.UpdatedAt)
	return mapErr(err)
}

func (r *tokenRepo) Delete(ctx context.Context, serviceID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM oauth_token_map WHERE service_id = $1 AND user_id = $2`, serviceID, userID)
	return mapErr(err)
}

func (r *tokenRepo) CountForPair(ctx context.Context, serviceID, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM oauth_token_map WHERE service_id = $1 AND user_id = $2`, serviceID, userID).Scan(&n)
	return n, mapErr(err)
}
