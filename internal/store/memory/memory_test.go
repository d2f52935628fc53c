package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
)

func TestUsers_DuplicateEmailConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := New().Users()

	require.NoError(t, users.Create(ctx, &repository.User{Email: "a+svc@x.com"}))
	err := users.Create(ctx, &repository.User{Email: "a+svc@x.com"})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestUsers_RecordLoginClearsConfirmCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := New().Users()
	code := "abc"
	u := &repository.User{Email: "b@x.com", ConfirmCode: &code}
	require.NoError(t, users.Create(ctx, u))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, users.RecordLogin(ctx, u.ID, at))

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.ConfirmCode)
	require.NotNil(t, got.LastLoginDate)
	require.True(t, got.LastLoginDate.Equal(at))
}

func TestServices_UpsertByNameKeepsID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svcs := New().Services()

	a, err := svcs.UpsertByName(ctx, &repository.Service{Name: "tw", Provider: "twitter"})
	require.NoError(t, err)
	require.Equal(t, types.KindOAuth1a, a.Kind)

	b, err := svcs.UpsertByName(ctx, &repository.Service{Name: "tw", Provider: "twitter", Label: "Twitter"})
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)

	list, err := svcs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Twitter", list[0].Label)
}

func TestTokens_AtMostOnePerPair(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tokens := New().Tokens()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tokens.Upsert(ctx, &repository.TokenMap{ServiceID: "s1", UserID: "u1", Token: "t"})
		}()
	}
	wg.Wait()

	n, err := tokens.CountForPair(ctx, "s1", "u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, tokens.Upsert(ctx, &repository.TokenMap{ServiceID: "s1", UserID: "u1", Token: "new"}))
	got, err := tokens.Get(ctx, "s1", "u1")
	require.NoError(t, err)
	require.Equal(t, "new", got.Token)
}

func TestRoles_ReplaceAndServiceMap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	roles := New().Roles()
	require.NoError(t, roles.EnsureApp(ctx, "app1", ""))
	require.NoError(t, roles.EnsureApp(ctx, "app2", ""))

	require.NoError(t, roles.ReplaceUserRoles(ctx, "u1", "admin"))
	got, err := roles.ListUserRoles(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []repository.AppRole{
		{UserID: "u1", AppID: "app1", RoleID: "admin"},
		{UserID: "u1", AppID: "app2", RoleID: "admin"},
	}, got)

	// Sin mapa de servicio no se toca nada.
	require.NoError(t, roles.ApplyServiceRoleMap(ctx, "u1", "svc"))
	got, _ = roles.ListUserRoles(ctx, "u1")
	require.Len(t, got, 2)

	require.NoError(t, roles.SetServiceRoleMap(ctx, "svc", map[string]string{"app2": "viewer"}))
	require.NoError(t, roles.ApplyServiceRoleMap(ctx, "u1", "svc"))
	got, _ = roles.ListUserRoles(ctx, "u1")
	require.Equal(t, []repository.AppRole{{UserID: "u1", AppID: "app2", RoleID: "viewer"}}, got)
}

func TestRoles_FindRoleByGroup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	roles := New().Roles()
	require.NoError(t, roles.UpsertGroupMapping(ctx, repository.RoleGroupMapping{RoleID: "r1", GroupEmail: "Admins@corp.com"}))

	id, err := roles.FindRoleByGroup(ctx, "admins@corp.com")
	require.NoError(t, err)
	require.Equal(t, "r1", id)

	_, err = roles.FindRoleByGroup(ctx, "nobody@corp.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHeroku_GetOrCreateIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := New()

	u1, created, err := st.Heroku().GetOrCreateUser(ctx, "h-1", "dev@app.com")
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, u1.IsSysAdmin)
	require.Equal(t, "dev@app.com", u1.Name)

	u2, created, err := st.Heroku().GetOrCreateUser(ctx, "h-1", "dev@app.com")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, u1.ID, u2.ID)
}
