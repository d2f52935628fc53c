package federation

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/federation/internal/audit"
	"github.com/dropDatabas3/federation/internal/cache"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/http/providers"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

const DefaultTokenTTL = 5 * time.Minute

// TokenStore persiste el último token por (servicio, usuario) con cache read-through.
type TokenStore struct {
	repo  repository.TokenMapRepository
	cache cache.Client
	ttl   time.Duration
}

func NewTokenStore(repo repository.TokenMapRepository, c cache.Client, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenStore{repo: repo, cache: c, ttl: ttl}
}

// TokenCacheKey = service-<sid>:user-<uid>:token
func TokenCacheKey(serviceID, userID string) string {
	return fmt.Sprintf("service-%s:user-%s:token", serviceID, userID)
}

// Save hace upsert del registro y refresca el cache.
func (s *TokenStore) Save(ctx context.Context, serviceID, userID string, art *providers.TokenArtifact) error {
	rec := &repository.TokenMap{
		ServiceID: serviceID,
		UserID:    userID,
		Token:     art.AccessToken,
		Response:  art.RawResponse,
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	if err := s.cache.Set(ctx, TokenCacheKey(serviceID, userID), art.AccessToken, s.ttl); err != nil {
		logger.From(ctx).Warn("token cache set failed", logger.Err(err))
	}
	return nil
}

// Get devuelve el token cacheado o "" si no hay registro.
func (s *TokenStore) Get(ctx context.Context, serviceID, userID string) (string, error) {
	key := TokenCacheKey(serviceID, userID)
	if v, err := s.cache.Get(ctx, key); err == nil {
		return v, nil
	} else if !cache.IsNotFound(err) {
		logger.From(ctx).Warn("token cache get failed", logger.Err(err))
	}

	rec, err := s.repo.Get(ctx, serviceID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("token store: %w", err)
	}
	_ = s.cache.Set(ctx, key, rec.Token, s.ttl)
	return rec.Token, nil
}

// Delete borra el registro y luego la entrada de cache.
func (s *TokenStore) Delete(ctx context.Context, serviceID, userID string) error {
	if err := s.repo.Delete(ctx, serviceID, userID); err != nil && !repository.IsNotFound(err) {
		return fmt.Errorf("token store: %w", err)
	}
	if err := s.cache.Delete(ctx, TokenCacheKey(serviceID, userID)); err != nil {
		return err
	}
	audit.Log(ctx, audit.EventTokenDeleted, logger.ServiceID(serviceID), logger.UserID(userID))
	return nil
}
