package federation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/federation/internal/cache"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/http/providers"
	"github.com/dropDatabas3/federation/internal/store/memory"
)

func TestTokenStoreReadThroughAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := memory.New()
	c := cache.NewMemory("", time.Minute)
	ts := NewTokenStore(st.Tokens(), c, time.Minute)

	svc, err := st.Services().UpsertByName(ctx, &repository.Service{Name: "github", Provider: "github", RedirectURL: "https://x/cb"})
	require.NoError(t, err)
	u := &repository.User{Email: "a+github@x.com"}
	require.NoError(t, st.Users().Create(ctx, u))

	got, err := ts.Get(ctx, svc.ID, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, ts.Save(ctx, svc.ID, u.ID, &providers.TokenArtifact{AccessToken: "t1"}))
	require.NoError(t, ts.Save(ctx, svc.ID, u.ID, &providers.TokenArtifact{AccessToken: "t2"}))

	cached, err := c.Get(ctx, TokenCacheKey(svc.ID, u.ID))
	require.NoError(t, err)
	assert.Equal(t, "t2", cached)

	// cache vacío → se relee de la base
	require.NoError(t, c.Delete(ctx, TokenCacheKey(svc.ID, u.ID)))
	got, err = ts.Get(ctx, svc.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "t2", got)

	require.NoError(t, ts.Delete(ctx, svc.ID, u.ID))
	ok, err := c.Exists(ctx, TokenCacheKey(svc.ID, u.ID))
	require.NoError(t, err)
	assert.False(t, ok)
	got, err = ts.Get(ctx, svc.ID, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTokenCacheKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "service-s1:user-u1:token", TokenCacheKey("s1", "u1"))
}
