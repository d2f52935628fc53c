package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/federation/internal/config"
	"github.com/dropDatabas3/federation/internal/store"
)

func TestNew_WiresRoutes(t *testing.T) {
	t.Setenv("SESSION_SECRET", strings.Repeat("x", 32))
	t.Setenv("RATE_ENABLED", "true")
	t.Setenv("METRICS_ENABLED", "true")

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Rate.Login.Limit = 1
	cfg.Federation.Services = []config.ServiceSeed{{
		Name:         "google",
		Provider:     "google",
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURL:  "https://fed.test/api/v2/google/callback",
	}}

	a, err := New(context.Background(), cfg, Options{Store: store.NewMemory()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	do := func(method, path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		a.Handler.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
		return rr
	}

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/readyz").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/metrics").Code)

	rr := do(http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "ROUTE_NOT_FOUND")

	rr = do(http.MethodGet, "/api/v2/google/login")
	require.Equal(t, http.StatusFound, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "https://accounts.google.com/"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = do(http.MethodGet, "/api/v2/google/login")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestNewRegistryKnowsAllProviders(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(config.Federation{HTTPTimeout: "5s"})
	assert.Equal(t,
		[]string{"azure_ad", "bitbucket", "facebook", "github", "google", "microsoft", "twitter"},
		reg.AvailableProviders())
	require.NotNil(t, reg.HTTPClient)
	assert.Equal(t, 5*time.Second, reg.HTTPClient.Timeout)
	assert.NotNil(t, reg.HTTPClient.Transport)
}
