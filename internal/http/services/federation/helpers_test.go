package federation

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/federation/internal/cache"
	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
	"github.com/dropDatabas3/federation/internal/http/providers"
	jwtx "github.com/dropDatabas3/federation/internal/jwt"
	"github.com/dropDatabas3/federation/internal/store/memory"
)

const testSessionSecret = "test-session-secret-0123456789abcdef"

// ─── fakes de adapters ───

type fakeOAuth2 struct {
	kind      types.FlowKind
	identity  providers.RemoteIdentity
	artifact  providers.TokenArtifact
	exchanges atomic.Int32
	failWith  error
}

func (f *fakeOAuth2) Name() string         { return "fake" }
func (f *fakeOAuth2) Kind() types.FlowKind { return f.kind }

func (f *fakeOAuth2) AuthorizeURL(state string) string {
	v := url.Values{}
	if state != "" {
		v.Set("state", state)
	}
	return "https://idp.example/authorize?" + v.Encode()
}

func (f *fakeOAuth2) Exchange(_ context.Context, code string) (*providers.TokenArtifact, error) {
	f.exchanges.Add(1)
	if f.failWith != nil {
		return nil, f.failWith
	}
	art := f.artifact
	if art.AccessToken == "" {
		art.AccessToken = "at-" + code
	}
	art.RawResponse = map[string]any{"access_token": art.AccessToken}
	return &art, nil
}

func (f *fakeOAuth2) FetchIdentity(_ context.Context, _ *providers.TokenArtifact) (*providers.RemoteIdentity, error) {
	id := f.identity
	return &id, nil
}

type fakeOAuth1 struct {
	identity providers.RemoteIdentity
}

func (f *fakeOAuth1) Name() string         { return "fake1" }
func (f *fakeOAuth1) Kind() types.FlowKind { return types.KindOAuth1a }

func (f *fakeOAuth1) TemporaryCredentials(context.Context) (*providers.TempCredentials, error) {
	return &providers.TempCredentials{Token: "req-token", Secret: "req-secret"}, nil
}

func (f *fakeOAuth1) AuthorizeURL(temp *providers.TempCredentials) string {
	return "https://idp.example/oauth/authenticate?oauth_token=" + temp.Token
}

func (f *fakeOAuth1) Exchange(_ context.Context, temp *providers.TempCredentials, verifier string) (*providers.TokenArtifact, error) {
	if temp.Secret != "req-secret" || verifier != "v1" {
		return nil, errors.New("bad verifier")
	}
	return &providers.TokenArtifact{AccessToken: "acc", TokenSecret: "acc-secret", TokenType: "OAuth"}, nil
}

func (f *fakeOAuth1) FetchIdentity(context.Context, *providers.TokenArtifact) (*providers.RemoteIdentity, error) {
	id := f.identity
	return &id, nil
}

type fakeCC struct {
	calls   atomic.Int32
	delay   time.Duration
	err     error
	expires int
	started chan struct{} // se cierra en la primera llamada si no es nil
}

func (f *fakeCC) Name() string         { return "azure_ad" }
func (f *fakeCC) Kind() types.FlowKind { return types.KindClientCredentials }

func (f *fakeCC) FetchToken(ctx context.Context) (*providers.TokenArtifact, error) {
	n := f.calls.Add(1)
	if n == 1 && f.started != nil {
		close(f.started)
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &providers.TokenArtifact{
		AccessToken: "cc-token-" + string(rune('0'+n)),
		TokenType:   "Bearer",
		ExpiresIn:   f.expires,
		Scope:       "https://graph.microsoft.com/.default",
	}, nil
}

// staticResolver devuelve el adapter por nombre de servicio.
type staticResolver struct {
	mu       sync.Mutex
	adapters map[string]providers.Adapter
}

func (r *staticResolver) ForService(s *repository.Service) (providers.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.adapters[s.Name]
	if !ok {
		return nil, errors.New("no adapter")
	}
	return a, nil
}

// ─── entorno ───

type testEnv struct {
	svcs     *Services
	store    *memory.Store
	cache    cache.Client
	issuer   *jwtx.Issuer
	resolver *staticResolver
	now      time.Time
}

func newEnv(t *testing.T) *testEnv {
	return newEnvWithCache(t, cache.NewMemory("", time.Minute))
}

func newEnvWithCache(t *testing.T, c cache.Client) *testEnv {
	t.Helper()
	iss, err := jwtx.NewIssuer("https://fed.test", []byte(testSessionSecret), time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		store:    memory.New(),
		cache:    c,
		issuer:   iss,
		resolver: &staticResolver{adapters: map[string]providers.Adapter{}},
		now:      time.Now(),
	}
	env.svcs = NewServices(Deps{
		Services: env.store.Services(),
		Users:    env.store.Users(),
		Roles:    env.store.Roles(),
		Tokens:   env.store.Tokens(),
		Heroku:   env.store.Heroku(),
		Cache:    c,
		Adapters: env.resolver,
		Sessions: iss,
		Now:      func() time.Time { return env.now },
	})
	return env
}

func (e *testEnv) addService(t *testing.T, s *repository.Service, a providers.Adapter) *repository.Service {
	t.Helper()
	out, err := e.store.Services().UpsertByName(context.Background(), s)
	require.NoError(t, err)
	if a != nil {
		e.resolver.mu.Lock()
		e.resolver.adapters[out.Name] = a
		e.resolver.mu.Unlock()
	}
	return out
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}
