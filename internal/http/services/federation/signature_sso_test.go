package federation

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
)

func herokuService(secret string, kind types.SecretType) *repository.Service {
	return &repository.Service{
		Name:          "heroku-addon",
		Provider:      repository.ProviderHerokuAddonSSO,
		IsActive:      true,
		SSOSecret:     secret,
		SSOSecretType: kind,
	}
}

func TestSignMatchesScenario(t *testing.T) {
	t.Parallel()
	sum := sha1.Sum([]byte("r1:s:1700000000"))
	assert.Equal(t, hex.EncodeToString(sum[:]), Sign("r1", "s", "1700000000"))
}

func TestSignatureSSOFreshness(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	svc := env.addService(t, herokuService("s", types.SecretString), nil)
	ctx := context.Background()

	req := func(age time.Duration) SSORequest {
		ts := strconv.FormatInt(env.now.Add(-age).Unix(), 10)
		return SSORequest{
			ResourceToken: Sign("r1", "s", ts),
			ResourceID:    "r1",
			Timestamp:     ts,
			UserID:        "heroku-user-1",
			Email:         "owner@example.com",
		}
	}

	_, err := env.svcs.SignatureSSO.Handle(ctx, svc, req(6*time.Minute))
	require.ErrorIs(t, err, ErrTimestampExpired)

	res, err := env.svcs.SignatureSSO.Handle(ctx, svc, req(4*time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.User.IsSysAdmin)
	assert.True(t, res.User.IsActive)
	assert.Equal(t, "owner@example.com", res.User.Email)
	assert.Equal(t, "owner@example.com", res.User.Name)
	assert.NotEmpty(t, res.Session.Token)

	again, err := env.svcs.SignatureSSO.Handle(ctx, svc, req(time.Minute))
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, res.User.ID, again.User.ID)
}

func TestSignatureSSORejects(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	svc := env.addService(t, herokuService("s", types.SecretString), nil)
	ctx := context.Background()
	ts := strconv.FormatInt(env.now.Unix(), 10)

	_, err := env.svcs.SignatureSSO.Handle(ctx, svc, SSORequest{
		ResourceToken: Sign("r1", "wrong", ts), ResourceID: "r1", Timestamp: ts, UserID: "u", Email: "e@x.com",
	})
	require.ErrorIs(t, err, ErrSignatureInvalid)

	_, err = env.svcs.SignatureSSO.Handle(ctx, svc, SSORequest{ResourceID: "r1", Timestamp: ts})
	require.ErrorIs(t, err, ErrBadSSORequest)

	// la firma se verifica antes que el timestamp
	_, err = env.svcs.SignatureSSO.Handle(ctx, svc, SSORequest{
		ResourceToken: "x", ResourceID: "r1", Timestamp: "yesterday", UserID: "u", Email: "e@x.com",
	})
	require.ErrorIs(t, err, ErrSignatureInvalid)

	_, err = env.svcs.SignatureSSO.Handle(ctx, svc, SSORequest{
		ResourceToken: Sign("r1", "s", "yesterday"), ResourceID: "r1", Timestamp: "yesterday", UserID: "u", Email: "e@x.com",
	})
	require.ErrorIs(t, err, ErrTimestampExpired)

	empty := env.addService(t, &repository.Service{
		Name: "heroku-empty", Provider: repository.ProviderHerokuAddonSSO, IsActive: true,
	}, nil)
	_, err = env.svcs.SignatureSSO.Handle(ctx, empty, SSORequest{
		ResourceToken: Sign("r1", "", ts), ResourceID: "r1", Timestamp: ts, UserID: "u", Email: "e@x.com",
	})
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestResolveSecret(t *testing.T) {
	ctx := context.Background()
	t.Setenv("FED_TEST_SSO_SECRET", "from-env")
	p := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(p, []byte("from-file\n"), 0o600))

	assert.Equal(t, "lit", ResolveSecret(ctx, "lit", types.SecretString))
	assert.Equal(t, "from-env", ResolveSecret(ctx, "FED_TEST_SSO_SECRET", types.SecretEnvironment))
	assert.Equal(t, "from-file", ResolveSecret(ctx, p, types.SecretFile))
	assert.Equal(t, "lit", ResolveSecret(ctx, "lit", types.SecretType("vault")))
}
