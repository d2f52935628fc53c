package providers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/domain/types"
)

type fakeAdapter struct{ n int }

func (f *fakeAdapter) Name() string         { return "fake" }
func (f *fakeAdapter) Kind() types.FlowKind { return types.KindOAuth2Stateful }

func TestRegistry_CachesPerServiceVersion(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	calls := 0
	r.RegisterFactory("fake", func(cfg Config) (Adapter, error) {
		calls++
		return &fakeAdapter{n: calls}, nil
	})

	svc := &repository.Service{ID: "s1", Provider: "fake", UpdatedAt: time.Unix(1, 0)}
	a1, err := r.ForService(svc)
	require.NoError(t, err)
	a2, err := r.ForService(svc)
	require.NoError(t, err)
	require.Same(t, a1, a2)
	require.Equal(t, 1, calls)

	svc.UpdatedAt = time.Unix(2, 0)
	a3, err := r.ForService(svc)
	require.NoError(t, err)
	require.NotSame(t, a1, a3)

	_, err = r.ForService(&repository.Service{ID: "s2", Provider: "nope"})
	require.ErrorIs(t, err, ErrMisconfigured)
	require.Equal(t, []string{"fake"}, r.AvailableProviders())
}

func TestConfigFromService_SplitsScopes(t *testing.T) {
	t.Parallel()
	cfg := ConfigFromService(&repository.Service{Scopes: "openid, email  profile"})
	require.Equal(t, []string{"openid", "email", "profile"}, cfg.Scopes)
}

func TestNewHTTPClient_BoundsConnect(t *testing.T) {
	t.Parallel()
	c := NewHTTPClient(5 * time.Second)
	require.Equal(t, 5*time.Second, c.Timeout)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	require.Equal(t, ConnectTimeout, tr.TLSHandshakeTimeout)
	require.NotNil(t, tr.DialContext)

	require.Equal(t, DefaultHTTPTimeout, NewHTTPClient(0).Timeout)
	require.Equal(t, DefaultHTTPTimeout, Config{}.Client().Timeout)
}
