package federation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/federation/internal/cache"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
	"github.com/dropDatabas3/federation/internal/http/providers"
)

func ccService() *repository.Service {
	return &repository.Service{
		Name:          "azure-cc",
		Label:         "Azure CC",
		Provider:      "azure_ad",
		IsActive:      true,
		ClientID:      "cid",
		ClientSecret:  "csec",
		TenantID:      "t1",
		GrantType:     "client_credentials",
		DefaultRoleID: "viewer",
	}
}

func TestClientCredentialsCachesToken(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	seedRoles(t, env)
	f := &fakeCC{expires: 3600}
	svc := env.addService(t, ccService(), f)
	require.Equal(t, types.KindClientCredentials, svc.Kind)
	ctx := context.Background()

	first, err := env.svcs.ClientCredentials.GetToken(ctx, svc)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := env.svcs.ClientCredentials.GetToken(ctx, svc)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Token.AccessToken, second.Token.AccessToken)
	assert.EqualValues(t, 1, f.calls.Load())

	u := first.User
	assert.Equal(t, fmt.Sprintf("cc_azure-cc_%s@service.local", svc.ID), u.Email)
	assert.Equal(t, "Service Account for Azure CC", u.Name)
	assert.Equal(t, "Service", u.FirstName)
	assert.Equal(t, "Account (azure-cc)", u.LastName)
	assert.Equal(t, ServiceAccountOrigin, u.OAuthProvider)
	assert.Equal(t, second.User.ID, u.ID)
	assert.Equal(t, map[string]string{"app1": "viewer", "app2": "viewer"}, rolesOf(t, env, u.ID))

	claims, err := env.issuer.Parse(second.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestClientCredentialsExpiredEntryRefetchesOnce(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newEnvWithCache(t, cache.NewRedisFromClient(rdb, "fed"))
	f := &fakeCC{expires: 120}
	svc := env.addService(t, ccService(), f)
	ctx := context.Background()

	_, err := env.svcs.ClientCredentials.GetToken(ctx, svc)
	require.NoError(t, err)
	assert.InDelta(t, 60, mr.TTL("fed:"+CCCacheKey(svc.ID)).Seconds(), 1)

	mr.FastForward(61 * time.Second)

	res, err := env.svcs.ClientCredentials.GetToken(ctx, svc)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.EqualValues(t, 2, f.calls.Load())

	_, err = env.svcs.ClientCredentials.GetToken(ctx, svc)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestClientCredentialsCoalescesConcurrentFetches(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	f := &fakeCC{expires: 3600, delay: 50 * time.Millisecond}
	svc := env.addService(t, ccService(), f)
	ctx := context.Background()

	var wg sync.WaitGroup
	tokens := make([]string, 10)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.svcs.ClientCredentials.GetToken(ctx, svc)
			if err == nil {
				tokens[i] = res.Token.AccessToken
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.calls.Load())
	for _, tok := range tokens {
		assert.Equal(t, tokens[0], tok)
	}
}

func TestClientCredentialsCancelledCallerDoesNotFailOthers(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	f := &fakeCC{expires: 3600, delay: 200 * time.Millisecond, started: make(chan struct{})}
	svc := env.addService(t, ccService(), f)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := env.svcs.ClientCredentials.GetToken(ctxA, svc)
		errA <- err
	}()
	<-f.started

	type result struct {
		res *CCResult
		err error
	}
	resB := make(chan result, 1)
	go func() {
		res, err := env.svcs.ClientCredentials.GetToken(context.Background(), svc)
		resB <- result{res, err}
	}()

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "cc-token-1", b.res.Token.AccessToken)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestClientCredentialsDefaultExpiry(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	svc := env.addService(t, ccService(), &fakeCC{})
	res, err := env.svcs.ClientCredentials.GetToken(context.Background(), svc)
	require.NoError(t, err)
	assert.Equal(t, 3600, res.Token.ExpiresIn)
	assert.Equal(t, "Bearer", res.Token.TokenType)
}

func TestClientCredentialsRefreshStatusClear(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	f := &fakeCC{expires: 3600}
	svc := env.addService(t, ccService(), f)
	ctx := context.Background()
	m := env.svcs.ClientCredentials

	st, err := m.Status(ctx, svc)
	require.NoError(t, err)
	assert.False(t, st.Valid)
	assert.False(t, st.Cached)
	assert.NotEmpty(t, st.Message)

	first, err := m.GetToken(ctx, svc)
	require.NoError(t, err)

	refreshed, err := m.RefreshToken(ctx, svc)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token.AccessToken, refreshed.Token.AccessToken)
	assert.EqualValues(t, 2, f.calls.Load())

	st, err = m.Status(ctx, svc)
	require.NoError(t, err)
	assert.True(t, st.Valid)
	assert.True(t, st.Cached)
	assert.Equal(t, "Bearer", st.TokenType)

	require.NoError(t, m.ClearToken(ctx, svc))
	st, err = m.Status(ctx, svc)
	require.NoError(t, err)
	assert.False(t, st.Cached)
}

func TestClientCredentialsErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("provider rejection is unauthorized with description", func(t *testing.T) {
		env := newEnv(t)
		f := &fakeCC{err: fmt.Errorf("azure-cc: token: %w", &oauth2.RetrieveError{
			ErrorCode:        "invalid_client",
			ErrorDescription: "AADSTS7000215: Invalid client secret provided.",
		})}
		svc := env.addService(t, ccService(), f)
		_, err := env.svcs.ClientCredentials.GetToken(ctx, svc)
		require.ErrorIs(t, err, ErrTokenExchangeFailed)
		assert.Contains(t, err.Error(), "AADSTS7000215")
		assert.NotContains(t, err.Error(), "csec")
	})

	t.Run("missing access token is internal", func(t *testing.T) {
		env := newEnv(t)
		f := &fakeCC{err: fmt.Errorf("azure-cc: %w", providers.ErrMissingAccessToken)}
		svc := env.addService(t, ccService(), f)
		_, err := env.svcs.ClientCredentials.GetToken(ctx, svc)
		require.ErrorIs(t, err, ErrMissingAccessToken)
	})

	t.Run("non client credentials service", func(t *testing.T) {
		env := newEnv(t)
		svc := env.addService(t, googleService(), googleAdapter())
		_, err := env.svcs.ClientCredentials.GetToken(ctx, svc)
		require.ErrorIs(t, err, ErrNotClientCredentials)
		_, err = env.svcs.ClientCredentials.Status(ctx, svc)
		require.ErrorIs(t, err, ErrNotClientCredentials)
	})
}
