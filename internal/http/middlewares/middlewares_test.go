package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	jwtx "github.com/dropDatabas3/federation/internal/jwt"
	"github.com/dropDatabas3/federation/internal/rate"
)

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func TestChainOrder(t *testing.T) {
	t.Parallel()
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(ok(), mk("a"), mk("b"), mk("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRequestIDAndRecover(t *testing.T) {
	t.Parallel()
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := Chain(panicky, WithRequestID(), WithLogging(), WithRecover())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Len(t, rr.Header().Get("X-Request-ID"), 32)

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc")
	Chain(ok(), WithRequestID()).ServeHTTP(rr, req)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	h := Chain(ok(), WithRateLimit("login", rate.NewMemoryLimiter(1, time.Minute), nil))

	req := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v2/google/login", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(rr, r)
		return rr
	}
	assert.Equal(t, http.StatusNoContent, req().Code)
	rr := req()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestRequireSession(t *testing.T) {
	t.Parallel()
	iss, err := jwtx.NewIssuer("https://fed.test", []byte("middleware-test-secret-0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	sess, err := iss.IssueSession(&repository.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	var got *jwtx.SessionClaims
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSession(r.Context())
	}), RequireSession(iss))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+sess.Token)
	h.ServeHTTP(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Nil(t, GetSession(context.Background()))
}
