package helpers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWantsJSON(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, WantsJSON(r))
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	assert.True(t, WantsJSON(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept", "application/json, text/plain")
	assert.True(t, WantsJSON(r))
}

func TestAppendQuery(t *testing.T) {
	t.Parallel()
	got := AppendQuery("https://app.example.com/done?x=1", url.Values{"session_token": {"a b"}})
	assert.Equal(t, "https://app.example.com/done?session_token=a+b&x=1", got)
	assert.Equal(t, "/?error=bad", AppendQuery("/", url.Values{"error": {"bad"}}))
}

func TestReadJSON(t *testing.T) {
	t.Parallel()
	var v map[string]any
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	assert.False(t, ReadJSON(rr, r, &v))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"access_token":"x"}`))
	r.Header.Set("Content-Type", "application/json")
	assert.True(t, ReadJSON(rr, r, &v))
	assert.Equal(t, "x", v["access_token"])
}
