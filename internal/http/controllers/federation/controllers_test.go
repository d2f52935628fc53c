package federation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/federation/internal/cache"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
	dto "github.com/dropDatabas3/federation/internal/http/dto/federation"
	mw "github.com/dropDatabas3/federation/internal/http/middlewares"
	"github.com/dropDatabas3/federation/internal/http/providers"
	svc "github.com/dropDatabas3/federation/internal/http/services/federation"
	jwtx "github.com/dropDatabas3/federation/internal/jwt"
	"github.com/dropDatabas3/federation/internal/store/memory"
)

type fakeIDP struct{}

func (fakeIDP) Name() string         { return "fake" }
func (fakeIDP) Kind() types.FlowKind { return types.KindOAuth2Stateful }

func (fakeIDP) AuthorizeURL(state string) string {
	return "https://idp.example/authorize?" + url.Values{"state": {state}}.Encode()
}

func (fakeIDP) Exchange(_ context.Context, code string) (*providers.TokenArtifact, error) {
	return &providers.TokenArtifact{AccessToken: "at-" + code, IDToken: "idt", RawResponse: map[string]any{}}, nil
}

func (fakeIDP) FetchIdentity(context.Context, *providers.TokenArtifact) (*providers.RemoteIdentity, error) {
	return &providers.RemoteIdentity{ProviderUserID: "42", Email: "ana@example.com", DisplayName: "Ana Diaz"}, nil
}

type resolver map[string]providers.Adapter

func (r resolver) ForService(s *repository.Service) (providers.Adapter, error) {
	if a, ok := r[s.Name]; ok {
		return a, nil
	}
	return nil, providers.ErrMisconfigured
}

type fixture struct {
	router http.Handler
	issuer *jwtx.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	_, err := st.Services().UpsertByName(ctx, &repository.Service{
		Name: "google", Provider: "google", Kind: types.KindOAuth2Stateful,
		IsActive: true, AllowNewUsers: true, RedirectURL: "https://fed.test/api/v2/google/callback",
	})
	require.NoError(t, err)
	_, err = st.Services().UpsertByName(ctx, &repository.Service{
		Name: "heroku-addon", Provider: repository.ProviderHerokuAddonSSO, Kind: types.KindSignatureSSO,
		IsActive: true, SSOSecret: "s3cret", SSOSecretType: types.SecretString,
	})
	require.NoError(t, err)
	_, err = st.Services().UpsertByName(ctx, &repository.Service{
		Name: "legacy", Provider: "github", Kind: types.KindOAuth2Stateful,
	})
	require.NoError(t, err)

	iss, err := jwtx.NewIssuer("https://fed.test", []byte(strings.Repeat("s", 32)), time.Hour)
	require.NoError(t, err)

	services := svc.NewServices(svc.Deps{
		Services: st.Services(),
		Users:    st.Users(),
		Roles:    st.Roles(),
		Tokens:   st.Tokens(),
		Heroku:   st.Heroku(),
		Cache:    cache.NewMemory("", time.Minute),
		Adapters: resolver{"google": fakeIDP{}},
		Sessions: iss,
	})
	c := NewControllers(services, Config{SuccessRedirect: "https://app.test/done", ErrorRedirect: "https://app.test/error"})

	r := chi.NewRouter()
	r.Get("/api/v2/oauth/callback", c.Login.GenericCallback)
	r.Route("/api/v2/{service}", func(r chi.Router) {
		r.Get("/login", c.Login.Login)
		r.Get("/callback", c.Login.Callback)
		r.Post("/callback", c.Login.Callback)
		r.Post("/sso", c.Login.SSO)
		r.Get("/client_credentials", c.ClientCredentials.Get)
		r.Get("/heroku/sso", c.SignatureSSO.SSO)
		r.Post("/heroku/sso", c.SignatureSSO.SSO)
		r.With(mw.RequireSession(iss)).Get("/token", c.Token.Get)
		r.With(mw.RequireSession(iss)).Delete("/token", c.Token.Delete)
	})
	return &fixture{router: r, issuer: iss}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) startLogin(t *testing.T) string {
	t.Helper()
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/google/login", nil))
	require.Equal(t, http.StatusFound, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.Len(t, state, svc.StateLength)
	return state
}

func TestLogin_JSONVariant(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/google/login", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	rr := f.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body dto.RedirectResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Response.Redirect)
	assert.True(t, strings.HasPrefix(body.Response.URL, "https://idp.example/authorize?state="))
}

func TestLogin_UnknownAndInactiveService(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/nope/login", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/legacy/login", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCallback_RedirectsWithSessionToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	state := f.startLogin(t)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/google/callback?state="+state+"&code=c1", nil))
	require.Equal(t, http.StatusFound, rr.Code)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.test", loc.Host)
	assert.Equal(t, "/done", loc.Path)

	claims, err := f.issuer.Parse(loc.Query().Get("session_token"))
	require.NoError(t, err)
	assert.Equal(t, "ana+google@example.com", claims.Email)
}

func TestCallback_JSONPayloadAndTokenEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	state := f.startLogin(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/google/callback?state="+state+"&code=c2", nil)
	req.Header.Set("Accept", "application/json")
	rr := f.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var p dto.SessionPayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "ana+google@example.com", p.Email)
	assert.Equal(t, "Ana", p.FirstName)
	assert.Equal(t, "Diaz", p.LastName)
	assert.Equal(t, "at-c2", p.OAuthToken)
	assert.Equal(t, "idt", p.IDToken)
	assert.NotNil(t, p.LastLoginDate)

	// token cacheado para el usuario de la sesión
	req = httptest.NewRequest(http.MethodGet, "/api/v2/google/token", nil)
	req.Header.Set("Authorization", "Bearer "+p.SessionToken)
	rr = f.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var tok dto.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tok))
	assert.Equal(t, "at-c2", tok.Token)

	req = httptest.NewRequest(http.MethodDelete, "/api/v2/google/token", nil)
	req.Header.Set("Authorization", "Bearer "+p.SessionToken)
	rr = f.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v2/google/token", nil)
	req.Header.Set("Authorization", "Bearer "+p.SessionToken)
	rr = f.do(t, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCallback_ReplayedStateIsRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	state := f.startLogin(t)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/google/callback?state="+state+"&code=c", nil))
	require.Equal(t, http.StatusFound, rr.Code)

	// navegador: redirect al front con ?error=
	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/google/callback?state="+state+"&code=c", nil))
	require.Equal(t, http.StatusFound, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/error", loc.Path)
	assert.NotEmpty(t, loc.Query().Get("error"))

	// XHR: 400 INVALID_STATE
	req := httptest.NewRequest(http.MethodGet, "/api/v2/google/callback?state="+state+"&code=c", nil)
	req.Header.Set("Accept", "application/json")
	rr = f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_STATE")
}

func TestCallback_ProviderErrorIsSurfaced(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	state := f.startLogin(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/google/callback?state="+state+"&error=access_denied", nil)
	req.Header.Set("Accept", "application/json")
	rr := f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "access_denied")
}

func TestGenericCallback_ResolvesServiceFromState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	state := f.startLogin(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/oauth/callback?state="+state+"&code=g", nil)
	req.Header.Set("Accept", "application/json")
	rr := f.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"oauth_token":"at-g"`)
}

func TestCallback_POSTForm(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	state := f.startLogin(t)

	form := url.Values{"state": {state}, "code": {"p"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v2/google/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := f.do(t, req)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "session_token=")
}

func TestSSO_LoginWithTokenResponse(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/google/sso", strings.NewReader(`{"access_token":"direct","expires_in":3600}`))
	req.Header.Set("Content-Type", "application/json")
	rr := f.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"oauth_token":"direct"`)

	req = httptest.NewRequest(http.MethodPost, "/api/v2/google/sso", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr = f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClientCredentials_RejectsOtherKinds(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/google/client_credentials", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "NOT_CLIENT_CREDENTIALS")
}

func TestSignatureSSO(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	q := url.Values{
		"resource_token": {svc.Sign("app-1", "s3cret", ts)},
		"resource_id":    {"app-1"},
		"timestamp":      {ts},
		"user_id":        {"heroku-7"},
		"email":          {"ops@example.com"},
	}
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/heroku-addon/heroku/sso?"+q.Encode(), nil))
	require.Equal(t, http.StatusFound, rr.Code)

	var body dto.SignatureSSOResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ops@example.com", body.Email)
	assert.Equal(t, "/?jwt="+url.QueryEscape(body.JWT), rr.Header().Get("Location"))

	claims, err := f.issuer.Parse(body.JWT)
	require.NoError(t, err)
	assert.True(t, claims.IsSysAdmin)

	q.Set("resource_token", strings.Repeat("0", 40))
	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/heroku-addon/heroku/sso?"+q.Encode(), nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	q.Set("timestamp", "abc")
	q.Set("resource_token", svc.Sign("app-1", "s3cret", "abc"))
	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/heroku-addon/heroku/sso?"+q.Encode(), nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "TIMESTAMP_EXPIRED")

	q.Del("email")
	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/heroku-addon/heroku/sso?"+q.Encode(), nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestToken_RequiresSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v2/google/token", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMapError_UnregisteredProviderIsUnavailable(t *testing.T) {
	t.Parallel()
	_, err := providers.NewRegistry().ForService(&repository.Service{ID: "s1", Provider: "gitlab"})
	require.Error(t, err)
	appErr := mapError(err)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus)
}
